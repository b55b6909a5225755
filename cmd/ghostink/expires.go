package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	str2duration "github.com/xhit/go-str2duration/v2"
)

var _ pflag.Value = (*expiresFlag)(nil)

// expiresFlag parses relative lifetimes such as 30m, 1h, 2d or 1w.
type expiresFlag struct {
	raw string
	d   time.Duration
}

func (f *expiresFlag) Set(s string) error {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return errors.Errorf("invalid duration %q (try 30m, 1h, 2d or 1w)", s)
	}
	if d <= 0 {
		return errors.Errorf("duration %q must be positive", s)
	}
	f.raw, f.d = s, d
	return nil
}

func (f *expiresFlag) String() string { return f.raw }

func (f *expiresFlag) Type() string { return "duration" }

// at returns the absolute expiry, or nil when the flag was not given so the
// server default applies.
func (f *expiresFlag) at(now time.Time) *time.Time {
	if f.d == 0 {
		return nil
	}
	t := now.Add(f.d)
	return &t
}
