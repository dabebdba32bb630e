package qr

import (
	"errors"
	"image/color"
	"testing"
)

func TestEncoder_Encode(t *testing.T) {
	e := NewEncoder()

	img, err := e.Encode("http://localhost:3001/order?table=7", 100)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got := img.Bounds().Size(); got.X != 100 || got.Y != 100 {
		t.Errorf("size = %v, want 100x100", got)
	}

	// Without a border the top-left finder pattern starts at the origin.
	y := color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y
	if y != 0 {
		t.Errorf("pixel (0,0) = %d, want black finder pattern", y)
	}
}

func TestEncoder_EncodeInvalidSize(t *testing.T) {
	if _, err := NewEncoder().Encode("x", 0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Encode(size 0) error = %v, want ErrInvalidSize", err)
	}
}

func TestTableURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		table   string
		want    string
		wantErr bool
	}{
		{name: "plain", base: "http://localhost:3001/order", table: "7", want: "http://localhost:3001/order?table=7"},
		{name: "keeps existing query", base: "https://venue.example.com/pay?lang=en", table: "12", want: "https://venue.example.com/pay?lang=en&table=12"},
		{name: "escapes table id", base: "http://h/order", table: "a b", want: "http://h/order?table=a+b"},
		{name: "invalid base", base: "http://[::1", table: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TableURL(tt.base, tt.table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TableURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TableURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
