package records_test

import (
	"testing"

	"aecvision/internal/records"
)

func TestDetailImageURL(t *testing.T) {
	tests := []struct {
		name   string
		detail records.Detail
		base   string
		want   string
	}{
		{"rasterized", records.Detail{FileName: "SD072100-01_1.png"}, "https://host/data", "https://host/data/SD072100-01_1.png"},
		{"trailing slash", records.Detail{FileName: "a_1.png"}, "https://host/data/", "https://host/data/a_1.png"},
		{"escaped", records.Detail{FileName: "a b_1.png"}, "https://host", "https://host/a%20b_1.png"},
		{"not rasterized", records.Detail{Link: "https://x/a.pdf"}, "https://host", ""},
		{"no base", records.Detail{FileName: "a_1.png"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.detail.ImageURL(tt.base); got != tt.want {
				t.Fatalf("ImageURL = %q, want %q", got, tt.want)
			}
		})
	}
}
