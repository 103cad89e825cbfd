package catalog

import "github.com/redis/go-redis/v9"

// Index maintenance runs as Lua scripts so every mutation updates the entity
// hash, all derived indexes, and the version counters in one atomic step.
// Concurrent readers never observe a partially updated index set.
//
// Previous-state keys (old category, old bucket) are derived inside the
// scripts from the stored hash; the deployment is single-node Redis.

// luaNormCategory mirrors NormalizeCategory so keys derived in-script match
// the keys built client-side.
const luaNormCategory = `
local function norm(c)
  if not c or c == '' then return 'uncategorized' end
  c = string.gsub(c, '^%s+', '')
  c = string.gsub(c, '%s+$', '')
  if c == '' then return 'uncategorized' end
  return string.gsub(string.lower(c), '%s+', '-')
end
`

// upsertScript writes the full field set and reconciles every derived index.
//
// KEYS: 1 product hash, 2 idx:all,
//       3 idx:category, 4 zidx:category,
//       5 idx:category:in, 6 zidx:category:in,
//       7 idx:category:out, 8 zidx:category:out   (all for the NEW category)
//       9 ver:product, 10 ver:category, 11 ver:category:in, 12 ver:category:out
// ARGV: 1 id, 2 raw category, 3 stock, 4.. field/value pairs
var upsertScript = redis.NewScript(luaNormCategory + `
local id = ARGV[1]
if not id or id == '' then
  return redis.error_reply('BAD_ID')
end

local newNorm = norm(ARGV[2])
local newStock = tonumber(ARGV[3]) or 0

local existed = redis.call('EXISTS', KEYS[1]) == 1
local prevCat = redis.call('HGET', KEYS[1], 'category')
local prevStock = tonumber(redis.call('HGET', KEYS[1], 'stock') or '0') or 0

for i = 4, #ARGV - 1, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end

local oldNorm = nil
if existed then
  oldNorm = norm(prevCat or '')
  if oldNorm ~= newNorm then
    redis.call('SREM', 'idx:category:' .. oldNorm, id)
    redis.call('ZREM', 'zidx:category:' .. oldNorm, id)
    redis.call('SREM', 'idx:category:in:' .. oldNorm, id)
    redis.call('ZREM', 'zidx:category:in:' .. oldNorm, id)
    redis.call('SREM', 'idx:category:out:' .. oldNorm, id)
    redis.call('ZREM', 'zidx:category:out:' .. oldNorm, id)
    redis.call('INCR', 'ver:category:' .. oldNorm)
  end
end

redis.call('SADD', KEYS[3], id)
redis.call('ZADD', KEYS[4], 0, id)

if newStock > 0 then
  redis.call('SADD', KEYS[5], id)
  redis.call('ZADD', KEYS[6], 0, id)
  redis.call('SREM', KEYS[7], id)
  redis.call('ZREM', KEYS[8], id)
else
  redis.call('SADD', KEYS[7], id)
  redis.call('ZADD', KEYS[8], 0, id)
  redis.call('SREM', KEYS[5], id)
  redis.call('ZREM', KEYS[6], id)
end

redis.call('SADD', KEYS[2], id)

redis.call('INCR', KEYS[9])
redis.call('INCR', KEYS[10])
if newStock > 0 then
  redis.call('INCR', KEYS[11])
else
  redis.call('INCR', KEYS[12])
end

if existed then
  local oldBucket
  if prevStock > 0 then
    oldBucket = 'ver:category:in:' .. oldNorm
  else
    oldBucket = 'ver:category:out:' .. oldNorm
  end
  local newBucket
  if newStock > 0 then
    newBucket = 'ver:category:in:' .. newNorm
  else
    newBucket = 'ver:category:out:' .. newNorm
  end
  if oldBucket ~= newBucket then
    redis.call('INCR', oldBucket)
  end
end

return 1
`)

// setStockScript writes a new stock value and moves bucket membership when
// the stock = 0 boundary is crossed. Category keys are derived in-script
// from the stored category.
//
// KEYS: 1 product hash, 2 ver:product
// ARGV: 1 id, 2 stock
var setStockScript = redis.NewScript(luaNormCategory + `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return redis.error_reply('NOT_FOUND')
end

local id = ARGV[1]
local newStock = tonumber(ARGV[2])
if newStock == nil or newStock < 0 then
  return redis.error_reply('BAD_STOCK')
end

local cat = norm(redis.call('HGET', KEYS[1], 'category') or '')
local prevStock = tonumber(redis.call('HGET', KEYS[1], 'stock') or '0') or 0

redis.call('HSET', KEYS[1], 'stock', tostring(newStock))

if newStock > 0 then
  redis.call('SADD', 'idx:category:in:' .. cat, id)
  redis.call('ZADD', 'zidx:category:in:' .. cat, 0, id)
  redis.call('SREM', 'idx:category:out:' .. cat, id)
  redis.call('ZREM', 'zidx:category:out:' .. cat, id)
else
  redis.call('SADD', 'idx:category:out:' .. cat, id)
  redis.call('ZADD', 'zidx:category:out:' .. cat, 0, id)
  redis.call('SREM', 'idx:category:in:' .. cat, id)
  redis.call('ZREM', 'zidx:category:in:' .. cat, id)
end

redis.call('INCR', KEYS[2])
redis.call('INCR', 'ver:category:' .. cat)
if newStock > 0 then
  redis.call('INCR', 'ver:category:in:' .. cat)
else
  redis.call('INCR', 'ver:category:out:' .. cat)
end
if (prevStock > 0) ~= (newStock > 0) then
  if prevStock > 0 then
    redis.call('INCR', 'ver:category:in:' .. cat)
  else
    redis.call('INCR', 'ver:category:out:' .. cat)
  end
end

return newStock
`)

// seedAndRangeScript backfills an ordered index from its plain set when the
// zset is empty (indexes written before zset support, or drift), then
// returns the requested rank range.
//
// KEYS: 1 zset, 2 set
// ARGV: 1 start rank, 2 stop rank (inclusive)
var seedAndRangeScript = redis.NewScript(`
if redis.call('ZCARD', KEYS[1]) == 0 then
  local members = redis.call('SMEMBERS', KEYS[2])
  for i = 1, #members do
    redis.call('ZADD', KEYS[1], 0, members[i])
  end
end
return redis.call('ZRANGE', KEYS[1], tonumber(ARGV[1]), tonumber(ARGV[2]))
`)
