package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateURL_Schemes(t *testing.T) {
	cases := []struct {
		url    string
		wantOK bool
	}{
		{"https://stripe.com/docs", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"file:///etc/passwd", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateURL(tc.url)
		if (err == nil) != tc.wantOK {
			t.Errorf("ValidateURL(%q): err=%v, wantOK=%v", tc.url, err, tc.wantOK)
		}
	}
}

func TestValidateURL_PrivateIPs(t *testing.T) {
	for _, u := range []string{
		"http://127.0.0.1/",
		"http://10.1.2.3/",
		"http://192.168.1.1/",
		"http://169.254.169.254/latest/meta-data/",
	} {
		if err := ValidateURL(u); !errors.Is(err, ErrSSRF) {
			t.Errorf("ValidateURL(%q): got %v, want ErrSSRF", u, err)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"stripe.com", "amazonaws.com:ec2", "api_v2-x"} {
		if err := ValidateIdentifier(ok); err != nil {
			t.Errorf("ValidateIdentifier(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a b", "x/../y", strings.Repeat("a", 300)} {
		if err := ValidateIdentifier(bad); err == nil {
			t.Errorf("ValidateIdentifier(%q): want error", bad)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 10)
	if err != nil || string(data) != "hello" {
		t.Fatalf("under limit: %q, %v", data, err)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello world"), 5); err == nil {
		t.Fatal("over limit: want error")
	}
}
