package ticket

import (
	"encoding/base64"
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of rendered ticket codes.  It is
// large enough to survive email clients scaling the image down.
const QRSize = 400

// RenderQR encodes token as a square black-on-white PNG QR code with
// medium error correction and the standard quiet-zone border.
func RenderQR(token string) ([]byte, error) {
	q, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("ticket: build qr code: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	q.DisableBorder = false
	png, err := q.PNG(QRSize)
	if err != nil {
		return nil, fmt.Errorf("ticket: render qr code: %w", err)
	}
	return png, nil
}

// DataURL wraps a PNG in a data: URL suitable for <img src>.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
