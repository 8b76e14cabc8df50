package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilLogsEverything(t *testing.T) {
	var s *ProgressSampler
	if _, ok := s.Observe(1, 10); !ok {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	var logged []int
	for done := 0; done <= 20; done++ {
		if _, ok := s.Observe(done, 20); ok {
			logged = append(logged, done)
		}
	}
	want := []int{0, 5, 10, 15, 20}
	if len(logged) != len(want) {
		t.Fatalf("logged = %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged = %v, want %v", logged, want)
		}
	}

	s.Reset()
	if _, ok := s.Observe(0, 20); !ok {
		t.Error("expected log after reset")
	}
}

func TestProgressSamplerZeroTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if _, ok := s.Observe(0, 0); ok {
		t.Error("empty batch should not log progress")
	}
}
