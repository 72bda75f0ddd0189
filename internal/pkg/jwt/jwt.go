package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidTicket = errors.New("invalid pairing ticket")

// Service signs the QR pairing payload so the confirm page can prove the
// payload came from this desktop and is still inside its short QR window.
type Service struct {
	secret []byte
	now    func() time.Time
}

type TicketClaims struct {
	PairingToken string `json:"pairing_token"`
	DeviceID     string `json:"device_id"`
	DeviceName   string `json:"device_name"`
	IP           string `json:"ip"`
	Port         int    `json:"port"`
	jwtlib.RegisteredClaims
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// WithNow overrides the clock used to validate expiry.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Sign(claims TicketClaims, issuedAt, expiresAt time.Time) (string, error) {
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		Subject:   claims.DeviceID,
		IssuedAt:  jwtlib.NewNumericDate(issuedAt),
		ExpiresAt: jwtlib.NewNumericDate(expiresAt),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) Parse(ticket string) (*TicketClaims, error) {
	token, err := jwtlib.ParseWithClaims(ticket, &TicketClaims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidTicket
	}

	claims, ok := token.Claims.(*TicketClaims)
	if !ok || claims.PairingToken == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}
