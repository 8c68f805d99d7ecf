package session

import "testing"

func TestDTMFKeyForDigit(t *testing.T) {
	key, ok := DTMFKeyForDigit("5")
	if !ok {
		t.Fatal("expected key for digit 5")
	}
	if key.Code != 5 || key.SubLabel != "JKL" {
		t.Errorf("key = %+v", key)
	}

	star, ok := DTMFKeyForDigit("*")
	if !ok || star.Code != DTMFStar {
		t.Errorf("star key = %+v, ok = %v", star, ok)
	}
	pound, ok := DTMFKeyForDigit("#")
	if !ok || pound.Code != DTMFPound {
		t.Errorf("pound key = %+v, ok = %v", pound, ok)
	}

	if _, ok := DTMFKeyForDigit("A"); ok {
		t.Error("expected no key for a non-keypad character")
	}
}

func TestValidateDTMF(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		digit   string
		wantErr bool
	}{
		{"digit five", 5, "5", false},
		{"zero", 0, "0", false},
		{"star", DTMFStar, "*", false},
		{"pound", DTMFPound, "#", false},
		{"code out of range", 12, "#", true},
		{"negative code", -1, "1", true},
		{"unknown digit", 3, "x", true},
		{"mismatched pair", 3, "7", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDTMF(tt.code, tt.digit)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDTMF(%d, %q) = %v, wantErr %v", tt.code, tt.digit, err, tt.wantErr)
			}
		})
	}
}
