package main

import (
	"testing"
	"time"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		duration time.Duration
		want     string
	}{
		{
			name:     "whole rate",
			count:    100,
			duration: 10 * time.Second,
			want:     "10.00/s",
		},
		{
			name:     "fractional rate",
			count:    1,
			duration: 3 * time.Second,
			want:     "0.33/s",
		},
		{
			name:     "zero duration",
			count:    100,
			duration: 0,
			want:     "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRate(tt.count, tt.duration)
			if got != tt.want {
				t.Errorf("formatRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentageString(t *testing.T) {
	tests := []struct {
		name  string
		part  int
		total int
		want  string
	}{
		{
			name:  "half",
			part:  1,
			total: 2,
			want:  "50.00%",
		},
		{
			name:  "all",
			part:  3,
			total: 3,
			want:  "100.00%",
		},
		{
			name:  "zero total",
			part:  1,
			total: 0,
			want:  "0.00%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentageString(tt.part, tt.total)
			if got != tt.want {
				t.Errorf("percentageString() = %v, want %v", got, tt.want)
			}
		})
	}
}
