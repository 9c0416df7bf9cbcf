package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyDose(t *testing.T) {
	tests := []struct {
		name       string
		prescribed float64
		actual     float64
		want       string
	}{
		{"exact match", 10, 10, "Correct dose taken"},
		{"slightly over within tolerance", 10, 11, "Close to prescribed dose (+1.0 units) - acceptable range"},
		{"slightly under within tolerance", 10, 9.5, "Close to prescribed dose (-0.5 units) - acceptable range"},
		{"significant overdose", 10, 15, "Took 5.0 units MORE than prescribed. Monitor for low blood sugar signs"},
		{"significant underdose", 10, 7, "Took 3.0 units LESS than prescribed. Monitor blood sugar closely"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyDose(tt.prescribed, tt.actual))
		})
	}
}

func TestVerifyDoseZeroPrescribed(t *testing.T) {
	// a zero prescribed dose never divides by zero; the difference reads as 0%
	got := VerifyDose(0, 5)
	assert.Equal(t, "Close to prescribed dose (+5.0 units) - acceptable range", got)
}
