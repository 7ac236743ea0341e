package trophy

// ProfileRank - грубый буквенный ранг профиля по подписчикам и репозиториям.
// score = followers*2 + repos.
func ProfileRank(metrics MetricSet) string {
	score := metrics.Value(MetricFollowers)*2 + metrics.Value(MetricRepos)
	switch {
	case score > 1000:
		return "S+"
	case score > 500:
		return "S"
	case score > 200:
		return "A+"
	case score > 100:
		return "A"
	case score > 50:
		return "B+"
	case score > 20:
		return "B"
	default:
		return "C"
	}
}
