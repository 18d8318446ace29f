package config

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AnswerKeyKey returns the cache key for the workbook's answer key
func (r *CacheKeyStruct) AnswerKeyKey() string {
	return "bank:answer_key"
}

// DashboardStatsKey returns the cache key for precomputed dashboard statistics
func (r *CacheKeyStruct) DashboardStatsKey() string {
	return "dashboard:stats"
}

// ResultsChannel returns the Redis PubSub channel for live submission events
func (r *CacheKeyStruct) ResultsChannel() string {
	return "results:events"
}

var CacheKey = NewCacheKeyStruct()
