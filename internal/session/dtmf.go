package session

import "fmt"

// DTMF signaling codes: 0-9 map to their digit, 10 is star, 11 is pound.
const (
	DTMFStar  = 10
	DTMFPound = 11
)

// DTMFKey is one key of the dialing keypad.
type DTMFKey struct {
	Digit    string
	Code     int
	SubLabel string
}

// DTMFKeys is the standard 12-key telephone keypad in display order.
var DTMFKeys = []DTMFKey{
	{Digit: "1", Code: 1},
	{Digit: "2", Code: 2, SubLabel: "ABC"},
	{Digit: "3", Code: 3, SubLabel: "DEF"},
	{Digit: "4", Code: 4, SubLabel: "GHI"},
	{Digit: "5", Code: 5, SubLabel: "JKL"},
	{Digit: "6", Code: 6, SubLabel: "MNO"},
	{Digit: "7", Code: 7, SubLabel: "PQRS"},
	{Digit: "8", Code: 8, SubLabel: "TUV"},
	{Digit: "9", Code: 9, SubLabel: "WXYZ"},
	{Digit: "*", Code: DTMFStar},
	{Digit: "0", Code: 0, SubLabel: "+"},
	{Digit: "#", Code: DTMFPound},
}

// DTMFKeyForDigit looks a keypad key up by its display character.
func DTMFKeyForDigit(digit string) (DTMFKey, bool) {
	for _, k := range DTMFKeys {
		if k.Digit == digit {
			return k, true
		}
	}
	return DTMFKey{}, false
}

// validateDTMF checks that code is within the signaling range and matches
// the display character.
func validateDTMF(code int, digit string) error {
	if code < 0 || code > DTMFPound {
		return fmt.Errorf("dtmf code %d out of range 0-11", code)
	}
	key, ok := DTMFKeyForDigit(digit)
	if !ok {
		return fmt.Errorf("dtmf digit %q is not a keypad key", digit)
	}
	if key.Code != code {
		return fmt.Errorf("dtmf code %d does not match digit %q", code, digit)
	}
	return nil
}
