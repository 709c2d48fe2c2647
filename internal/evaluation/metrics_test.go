package evaluation

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name      string
		relevant  []string
		retrieved []string
		k         int
		want      float64
	}{
		{"all found", []string{"campaign:c1", "user:u1"}, []string{"user:u1", "campaign:c1", "post:p1"}, 10, 1.0},
		{"half found", []string{"campaign:c1", "campaign:c2"}, []string{"campaign:c1", "post:p9"}, 10, 0.5},
		{"cut by k", []string{"campaign:c3"}, []string{"campaign:c1", "campaign:c2", "campaign:c3"}, 2, 0.0},
		{"no results", []string{"campaign:c1"}, nil, 10, 0.0},
		{"nothing relevant", nil, []string{"campaign:c1"}, 10, 0.0},
		{"duplicates count once", []string{"hashtag:h1", "hashtag:h2"}, []string{"hashtag:h1", "hashtag:h1"}, 10, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecallAtK(tt.relevant, tt.retrieved, tt.k); !almostEqual(got, tt.want) {
				t.Errorf("RecallAtK() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMRRAtK(t *testing.T) {
	tests := []struct {
		name      string
		relevant  []string
		retrieved []string
		k         int
		want      float64
	}{
		{"first", []string{"campaign:c1"}, []string{"campaign:c1", "campaign:c2"}, 10, 1.0},
		{"third", []string{"post:p3"}, []string{"post:p1", "post:p2", "post:p3"}, 10, 1.0 / 3.0},
		{"earliest of several", []string{"user:u2", "user:u3"}, []string{"user:u1", "user:u3", "user:u2"}, 10, 0.5},
		{"beyond k", []string{"post:p3"}, []string{"post:p1", "post:p2", "post:p3"}, 2, 0.0},
		{"empty relevant", nil, []string{"post:p1"}, 10, 0.0},
		{"empty retrieved", []string{"post:p1"}, nil, 10, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MRRAtK(tt.relevant, tt.retrieved, tt.k); !almostEqual(got, tt.want) {
				t.Errorf("MRRAtK() = %f, want %f", got, tt.want)
			}
		})
	}
}
