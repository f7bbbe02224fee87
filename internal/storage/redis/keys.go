package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/imposter/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "imposter"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// roomKeyPattern matches every room key for SCAN
func roomKeyPattern() string {
	return fmt.Sprintf("%s:room:*", keyPrefix)
}

// roomCodeFromKey is the inverse of roomKey
func roomCodeFromKey(key string) model.RoomCode {
	return model.RoomCode(strings.TrimPrefix(key, keyPrefix+":room:"))
}
