package app_test

import (
	"errors"
	"testing"

	"review_lens/internal/app"
	"review_lens/internal/domain"
)

func TestParseAppURL(t *testing.T) {
	cases := []struct {
		in     string
		id     string
		region string
		ok     bool
	}{
		{"https://apps.apple.com/us/app/notes/id1234567", "1234567", "us", true},
		{"  https://apps.apple.com/cn/app/%E5%BE%AE%E4%BF%A1/id414478124?l=en  ", "414478124", "cn", true},
		{"https://apps.apple.com/app/notes/id1234567", "", "", false},
		{"https://apps.apple.com/US/app/notes/id1234567", "", "", false},
		{"https://play.google.com/store/apps/details?id=com.x", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		ref, err := app.ParseAppURL(tc.in)
		if !tc.ok {
			if !errors.Is(err, domain.ErrInvalidAppURL) {
				t.Errorf("ParseAppURL(%q): expected ErrInvalidAppURL, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAppURL(%q): unexpected err %v", tc.in, err)
			continue
		}
		if ref.AppID != tc.id || ref.Region != tc.region {
			t.Errorf("ParseAppURL(%q) = %+v", tc.in, ref)
		}
	}
}
