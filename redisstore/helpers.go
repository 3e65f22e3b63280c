package redisstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/washpoint/washpoint/session"
)

// sessionFields flattens a session into hash field/value pairs. Nil
// times are stored as empty strings.
func sessionFields(s *session.Session) []interface{} {
	start := ""
	if s.StartTime != nil {
		start = s.StartTime.Format(time.RFC3339Nano)
	}
	end := ""
	if s.EndTime != nil {
		end = s.EndTime.Format(time.RFC3339Nano)
	}

	return []interface{}{
		"id", s.ID,
		"user_id", s.UserID,
		"machine_id", s.MachineID,
		"minutes", strconv.Itoa(s.Minutes),
		"cost", s.Cost.String(),
		"method", string(s.Method),
		"status", string(s.Status),
		"payment_ref", s.PaymentRef,
		"captured", strconv.FormatBool(s.Captured),
		"start_time", start,
		"end_time", end,
		"created_at", s.CreatedAt.Format(time.RFC3339Nano),
	}
}

// parseSession converts a Redis hash back into a session.
func parseSession(data map[string]string) (*session.Session, error) {
	minutes, err := strconv.Atoi(data["minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse minutes: %w", err)
	}

	cost, err := decimal.NewFromString(data["cost"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse cost: %w", err)
	}

	captured, err := strconv.ParseBool(data["captured"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse captured: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	s := &session.Session{
		ID:         data["id"],
		UserID:     data["user_id"],
		MachineID:  data["machine_id"],
		Minutes:    minutes,
		Cost:       cost,
		Method:     session.PaymentMethod(data["method"]),
		Status:     session.Status(data["status"]),
		PaymentRef: data["payment_ref"],
		Captured:   captured,
		CreatedAt:  createdAt,
	}

	if v := data["start_time"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		s.StartTime = &t
	}
	if v := data["end_time"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		s.EndTime = &t
	}

	return s, nil
}

// machineFields flattens a machine into hash field/value pairs.
func machineFields(m *session.Machine) []interface{} {
	return []interface{}{
		"id", m.ID,
		"name", m.Name,
		"rate_per_minute", m.RatePerMinute.String(),
		"min_minutes", strconv.Itoa(m.MinMinutes),
		"max_minutes", strconv.Itoa(m.MaxMinutes),
		"enabled", strconv.FormatBool(m.Enabled),
	}
}

// parseMachine converts a Redis hash back into a machine.
func parseMachine(data map[string]string) (*session.Machine, error) {
	rate, err := decimal.NewFromString(data["rate_per_minute"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate_per_minute: %w", err)
	}

	minMinutes, err := strconv.Atoi(data["min_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse min_minutes: %w", err)
	}

	maxMinutes, err := strconv.Atoi(data["max_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse max_minutes: %w", err)
	}

	enabled, err := strconv.ParseBool(data["enabled"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse enabled: %w", err)
	}

	return &session.Machine{
		ID:            data["id"],
		Name:          data["name"],
		RatePerMinute: rate,
		MinMinutes:    minMinutes,
		MaxMinutes:    maxMinutes,
		Enabled:       enabled,
	}, nil
}
