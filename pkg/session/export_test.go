package session

// SetEstimator replaces the per-session estimator used by a.
func SetEstimator(a *Accountant, fn func(*Session) int64) {
	a.estimate = fn
}

// SetStoreEstimator replaces the estimator of the accountant owned by s.
// It must be called before the sweeper starts.
func SetStoreEstimator(s *Store, fn func(*Session) int64) {
	s.accountant.estimate = fn
}
