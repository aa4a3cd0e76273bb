package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/perfume-mall/pkg/response"
)

// CtxUserID gin 上下文里存放已认证用户 ID 的键
const CtxUserID = "user_id"

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Auth 校验 Bearer token 并把用户 ID 写入上下文
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "malformed authorization header")
			c.Abort()
			return
		}

		cl, err := parseToken(parts[1], secret)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(CtxUserID, cl.UserID)
		c.Next()
	}
}

// UserID 从上下文取出认证用户 ID，未经过 Auth 时返回空串
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

func parseToken(tokenStr, secret string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return cl, nil
}

// GenerateToken 为用户签发 token，expire <= 0 时默认 24h
func GenerateToken(userID, secret string, expire time.Duration) (string, error) {
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	now := time.Now()
	cl := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(secret))
}
