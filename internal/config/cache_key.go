package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssessmentPayloadKey returns the cache key for an assessment's student payload
func (r *CacheKeyStruct) AssessmentPayloadKey(templateID string) string {
	return fmt.Sprintf("assessment:%s:payload", templateID)
}

var CacheKey = NewCacheKeyStruct()
