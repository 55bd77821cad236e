package limiters

// Store key shapes. The layout is part of the platform's shared data model
// (ops tooling and the other services grep for these prefixes), so the
// builders live here rather than inside each limiter.

func emailWindowKey(subject, identifier string) string {
	return "rate-limit:" + subject + ":email:" + identifier
}

func ipBucketKey(subject, ip string) string {
	return "rate-limit:" + subject + ":ip:" + ip
}

func attemptsKey(subject, identifier string) string {
	return "rate-limit:" + subject + ":attempts:" + identifier
}

func lastAttemptKey(subject, identifier string) string {
	return "rate-limit:" + subject + ":last:" + identifier
}

func globalKey(subject string) string {
	return "rate-limit:" + subject + ":global"
}

func failuresKey(subject, identifier string) string {
	return "rate-limit:" + subject + ":failures:" + identifier
}

func lockoutKey(subject, identifier string) string {
	return "rate-limit:" + subject + ":lockout:" + identifier
}
