package config

// SetPath overrides the config file path for tests
func (a *AppConfig) SetPath(path string) {
	a.path = path
}

// SetWeights overrides the raw weight values for tests
func (x *Ranking) SetWeights(keyword, importance, recency float64) {
	x.keyword = keyword
	x.importance = importance
	x.recency = recency
}
