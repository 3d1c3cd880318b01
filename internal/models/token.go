package models

import "time"

type TokenClaims struct {
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"exp"`
	IssuedAt  time.Time `json:"iat"`
}
