// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueToken mints a bearer token for the control plane, signed with
// secret. Callers (rird-ctl) attach it via the "auth" method before
// issuing any other request.
func IssueToken(secret string, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("rpc: sign token: %w", err)
	}
	return signed, nil
}

func validateToken(secret, tokenString string) error {
	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("rpc: invalid token: %w", err)
	}
	return nil
}

type authParams struct {
	Token string `json:"token"`
}

func (s *Server) handleAuth(params json.RawMessage) *Error {
	var p authParams
	if err := json.Unmarshal(params, &p); err != nil {
		return invalidParams("auth: " + err.Error())
	}
	if err := validateToken(s.authSecret, p.Token); err != nil {
		return &Error{Code: CodeInvalidRequest, Message: err.Error()}
	}
	return nil
}
