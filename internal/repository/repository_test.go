package repository

import (
	"math"
	"testing"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Page
		want     Page
		wantSkip int
	}{
		{"zero value", Page{}, Page{Page: 1, Limit: DefaultPageLimit}, 0},
		{"limit capped", Page{Page: 2, Limit: 500}, Page{Page: 2, Limit: MaxPageLimit}, MaxPageLimit},
		{"third page", Page{Page: 3, Limit: 10}, Page{Page: 3, Limit: 10}, 20},
		{"huge page", Page{Page: math.MaxInt / 50, Limit: MaxPageLimit}, Page{Page: MaxPage, Limit: MaxPageLimit}, (MaxPage - 1) * MaxPageLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
			if skip := tt.in.Skip(); skip != tt.wantSkip || skip < 0 {
				t.Errorf("Skip() = %d, want %d", skip, tt.wantSkip)
			}
		})
	}
}
