package logging

// ProgressSampler suppresses repetitive progress logs for batch stages. It
// emits when completion crosses a percentage bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits every bucketSize percent
// (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// Observe records done out of total and reports whether the progress line
// should be logged along with the current percentage. A nil sampler logs
// everything.
func (s *ProgressSampler) Observe(done, total int) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	percent := float64(done) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	if s == nil {
		return percent, true
	}
	bucket := int(percent / s.bucketSize)
	if bucket <= s.lastBucket {
		return percent, false
	}
	s.lastBucket = bucket
	return percent, true
}

// Reset clears the sampler state before a new batch.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
