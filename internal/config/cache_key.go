package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamSnapshotKey returns the cache key for an exam's catalog snapshot
func (r *CacheKeyStruct) ExamSnapshotKey(examID string) string {
	return fmt.Sprintf("exam:%s:snapshot", examID)
}

// QuestionKey returns the cache key for a single question's metadata
func (r *CacheKeyStruct) QuestionKey(questionID string) string {
	return fmt.Sprintf("question:%s", questionID)
}

// StudentEligibilityKey returns the cache key for a student's eligibility verdict on an exam
func (r *CacheKeyStruct) StudentEligibilityKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:eligible", studentID, examID)
}

// StudentEligibilityPattern matches every eligibility verdict cached for an exam
func (r *CacheKeyStruct) StudentEligibilityPattern(examID string) string {
	return fmt.Sprintf("student:*:exam:%s:eligible", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
