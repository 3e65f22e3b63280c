package redisstore

const (
	// createSessionScript reserves the machine and writes the session in
	// one atomic step. Returns 0 when the machine is already held.
	createSessionScript = `
local holder_key = KEYS[1]   -- wp:machine:{machineID}:holder
local session_key = KEYS[2]  -- wp:session:{sessionID}

local session_id = ARGV[1]

if redis.call('EXISTS', holder_key) == 1 then
  return 0
end
redis.call('SET', holder_key, session_id)

-- Remaining ARGV entries are field/value pairs of the session hash
for i = 2, #ARGV, 2 do
  redis.call('HSET', session_key, ARGV[i], ARGV[i + 1])
end

return 1
`

	// transitionScript compare-and-swaps the session status and keeps the
	// active index in step. Returns -1 when the session is missing and 0
	// when the status moved concurrently.
	transitionScript = `
local session_key = KEYS[1]  -- wp:session:{sessionID}
local active_set = KEYS[2]   -- wp:sessions:active

local from = ARGV[1]
local to = ARGV[2]
local due = ARGV[3]          -- scheduled end (unix seconds) when to == 'active'
local session_id = ARGV[4]

local current = redis.call('HGET', session_key, 'status')
if not current then
  return -1
end
if current ~= from then
  return 0
end

-- Remaining ARGV entries are field/value pairs of the updated hash
for i = 5, #ARGV, 2 do
  redis.call('HSET', session_key, ARGV[i], ARGV[i + 1])
end

if to == 'active' then
  redis.call('ZADD', active_set, due, session_id)
elseif from == 'active' and to ~= 'active' then
  redis.call('ZREM', active_set, session_id)
end

return 1
`

	// releaseMachineScript drops the reservation only when held by the
	// given session, so a late release cannot free someone else's hold.
	releaseMachineScript = `
local holder_key = KEYS[1]  -- wp:machine:{machineID}:holder

if redis.call('GET', holder_key) == ARGV[1] then
  redis.call('DEL', holder_key)
end

return 1
`
)
