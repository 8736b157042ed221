package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding a user's current login token id
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptHistoryKey returns the cache key for a user's attempt history list
func (r *CacheKeyStruct) AttemptHistoryKey(userID int) string {
	return fmt.Sprintf("user:%d:attempt_history", userID)
}

// UserEntitlementKey returns the cache key for a user's premium flag
func (r *CacheKeyStruct) UserEntitlementKey(userID int) string {
	return fmt.Sprintf("user:%d:entitled", userID)
}

// QuestionCountKey returns the cache key for the bank size of a category
func (r *CacheKeyStruct) QuestionCountKey(category string) string {
	return fmt.Sprintf("questions:%s:count", category)
}

// LoginAttemptsKey returns the cache key counting failed logins for an email
func (r *CacheKeyStruct) LoginAttemptsKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", email)
}

var CacheKey = NewCacheKeyStruct()
