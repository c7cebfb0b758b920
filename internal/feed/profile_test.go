package feed

import (
	"testing"

	"tera/internal/models"

	"github.com/stretchr/testify/assert"
)

func affinity(target string, score int) models.UserAffinity {
	return models.UserAffinity{SourceUserID: "viewer", TargetUserID: target, Score: score}
}

func TestComputeInterestProfile(t *testing.T) {
	tests := []struct {
		name    string
		rows    []models.UserAffinity
		friends []string
		want    InterestProfile
	}{
		{
			name: "no signal",
			want: DefaultProfile,
		},
		{
			name:    "friends only",
			rows:    []models.UserAffinity{affinity("f1", 10)},
			friends: []string{"f1"},
			want:    InterestProfile{Friend: 0.4, Topic: 0.2, Discovery: 0.6},
		},
		{
			name:    "strangers only",
			rows:    []models.UserAffinity{affinity("s1", 3), affinity("s2", 7)},
			friends: []string{"f1"},
			want:    InterestProfile{Friend: 0.2, Topic: 0.4, Discovery: 0.6},
		},
		{
			name:    "balanced",
			rows:    []models.UserAffinity{affinity("f1", 5), affinity("s1", 5)},
			friends: []string{"f1"},
			want:    InterestProfile{Friend: 0.4, Topic: 0.4, Discovery: 0.2},
		},
		{
			name:    "rows below threshold ignored",
			rows:    []models.UserAffinity{affinity("f1", 0), affinity("s1", -4)},
			friends: []string{"f1"},
			want:    DefaultProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeInterestProfile(tt.rows, tt.friends, 1)
			assert.InDelta(t, tt.want.Friend, got.Friend, 1e-9)
			assert.InDelta(t, tt.want.Topic, got.Topic, 1e-9)
			assert.InDelta(t, tt.want.Discovery, got.Discovery, 1e-9)
		})
	}
}

func TestAllocate_DefaultProfile(t *testing.T) {
	got := Allocate(100, DefaultProfile, DefaultParams())
	assert.Equal(t, Allocation{Friend: 20, Topic: 9, Trending: 14, Random: 6}, got)
	assert.Equal(t, 49, got.Total())
}

func TestAllocate_FallsBackToFixedCounts(t *testing.T) {
	got := Allocate(10, DefaultProfile, DefaultParams())
	assert.Equal(t, Allocation{Friend: 2, Topic: 0, Trending: 1, Random: 5}, got)

	got = Allocate(0, DefaultProfile, DefaultParams())
	assert.Equal(t, Allocation{Trending: 10, Random: 5}, got)
}
