package mocktarget

import (
	"strconv"
	"testing"
)

func TestBucketEntity_Deterministic(t *testing.T) {
	b1 := bucketEntity("12345", "loadgen_demo", "salt")
	b2 := bucketEntity("12345", "loadgen_demo", "salt")

	if b1 != b2 {
		t.Errorf("bucketEntity is not deterministic: got %d and %d", b1, b2)
	}
	if b1 < 0 || b1 >= 100 {
		t.Errorf("Bucket out of range: %d", b1)
	}
}

func TestBucketEntity_Distribution(t *testing.T) {
	counts := make([]int, 100)
	for i := 1; i <= 10000; i++ {
		counts[bucketEntity(strconv.Itoa(i), "loadgen_demo", "salt")]++
	}

	// ~100 per bucket, allow 50% variance
	for i, c := range counts {
		if c < 50 || c > 150 {
			t.Errorf("Bucket %d has %d entities, expected ~100", i, c)
		}
	}
}

func TestBucketEntity_EmptyEntityID(t *testing.T) {
	if b := bucketEntity("", "loadgen_demo", "salt"); b != -1 {
		t.Errorf("Expected -1 for empty entityID, got %d", b)
	}
}

func TestPickVariant(t *testing.T) {
	variants := []Variant{
		{ID: 1, Key: "a", Weight: 10},
		{ID: 2, Key: "b", Weight: 30},
		{ID: 3, Key: "c", Weight: 60},
	}

	tests := []struct {
		bucket int
		want   string
		ok     bool
	}{
		{-1, "", false},
		{0, "a", true},
		{9, "a", true},
		{10, "b", true},
		{39, "b", true},
		{40, "c", true},
		{99, "c", true},
	}
	for _, tt := range tests {
		v, ok := pickVariant(variants, tt.bucket)
		if ok != tt.ok || v.Key != tt.want {
			t.Errorf("pickVariant(%d) = %q, %v; want %q, %v", tt.bucket, v.Key, ok, tt.want, tt.ok)
		}
	}
}

func TestPickVariant_ShortWeights(t *testing.T) {
	// weights that do not cover every bucket leave the tail without a variant
	if _, ok := pickVariant([]Variant{{Key: "a", Weight: 20}}, 50); ok {
		t.Error("Expected no variant past the cumulative weight")
	}
}
