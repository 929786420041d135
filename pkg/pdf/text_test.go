package pdf

import "testing"

func TestTextString(t *testing.T) {
	tests := []struct {
		in   Object
		want string
	}{
		{StringObject("plain"), "plain"},
		{StringObject("Caf\xe9"), "Café"},
		{HexStringObject("\xfe\xff\x00H\x00i\x20\xac"), "Hi€"},
		{StringObject("\xef\xbb\xbfna\xc3\xafve"), "naïve"},
		{NumberObject(3), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := TextString(tt.in); got != tt.want {
			t.Errorf("TextString(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
