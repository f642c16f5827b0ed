package store

// Redis key layout. The formats below are load-bearing: changing any of
// them (or the conversation key separator) orphans previously stored logs.

// conversationKeySeparator joins the two sorted participant IDs. UUIDs
// contain hyphens too, but the full key is only ever compared as a whole,
// so the separator never needs to be parsed back out.
const conversationKeySeparator = "-"

// ConversationKey derives the canonical key for a 1:1 exchange. It is
// order-independent: ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return idA + conversationKeySeparator + idB
}

// conversationLogKey returns the Redis list key for a conversation.
func conversationLogKey(conversationKey string) string {
	return "conversation:" + conversationKey
}

// roomLogKey returns the Redis list key for a room's messages.
func roomLogKey(roomID string) string {
	return "room:" + roomID + ":messages"
}

// sessionKey returns the Redis key holding a session token's user.
func sessionKey(token string) string {
	return "session:" + token
}

// rateLimitKey returns the Redis key for a rate limit counter.
func rateLimitKey(bucket, caller string) string {
	return "ratelimit:" + bucket + ":" + caller
}
