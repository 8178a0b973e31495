package transform

import (
	"time"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func str(s string) *string {
	return &s
}

func num(f float64) *float64 {
	return &f
}
