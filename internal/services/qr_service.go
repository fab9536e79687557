package services

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// PaymentQR is a UPI collect intent and its rendered PNG.
type PaymentQR struct {
	URI    string `json:"uri"`
	PNG    string `json:"png_base64"`
	Amount string `json:"amount"`
}

// QRService builds UPI payment QR codes.
type QRService struct {
	currency string
	size     int
}

func NewQRService(currency string) *QRService {
	return &QRService{currency: currency, size: 256}
}

// UPIIntent returns the upi://pay URI for amount (minor units) to vpa.
func (s *QRService) UPIIntent(vpa, payee string, amount int64, note string) string {
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", payee)
	q.Set("am", FormatMinor(amount))
	q.Set("cu", s.currency)
	if note != "" {
		q.Set("tn", note)
	}
	// UPI apps expect %20 rather than + for spaces.
	return "upi://pay?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

// PaymentQR renders the UPI intent as a base64 PNG.
func (s *QRService) PaymentQR(vpa, payee string, amount int64, note string) (*PaymentQR, error) {
	if vpa == "" {
		return nil, ErrUPINotConfigured
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	uri := s.UPIIntent(vpa, payee, amount, note)
	png, err := qrcode.Encode(uri, qrcode.Medium, s.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return &PaymentQR{
		URI:    uri,
		PNG:    base64.StdEncoding.EncodeToString(png),
		Amount: FormatMinor(amount),
	}, nil
}
