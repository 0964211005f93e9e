package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session (JTI).
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SessionAnswersKey returns the hash key holding a session's current answers
// (question id -> selected option index).
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionFinalizeLockKey returns the single-flight lock key guarding finalize.
func (r *CacheKeyStruct) SessionFinalizeLockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:finalize_lock", sessionID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam's
// live proctoring monitor.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
