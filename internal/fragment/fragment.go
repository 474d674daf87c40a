// Package fragment 管理用户捕获的想法碎片及其持久化
// Package fragment holds captured thought fragments and their persistent store.
package fragment

import (
	"strconv"
	"time"
)

// Type 碎片类型 / fragment kind
type Type string

const (
	TypeFragment   Type = "fragment"
	TypeTodo       Type = "todo"
	TypeBrainstorm Type = "brainstorm"
	TypeReview     Type = "review"
)

// Status 待办状态，仅对 todo 有意义
// Status is the to-do state; meaningful only when Type is todo.
type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Fragment 一条捕获的想法
// Fragment is one captured unit of thought.
type Fragment struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	CreatedAt  int64    `json:"createdAt"`
	Tags       []string `json:"tags"`
	Type       Type     `json:"type"`
	Status     Status   `json:"status,omitempty"`
	AIInsights string   `json:"aiInsights,omitempty"`
}

// Created 返回创建时间 / returns CreatedAt as a time.Time
func (f Fragment) Created() time.Time {
	return time.UnixMilli(f.CreatedAt)
}

func (f Fragment) IsTodo() bool {
	return f.Type == TypeTodo
}

func (f Fragment) clone() Fragment {
	out := f
	if f.Tags != nil {
		out.Tags = append([]string(nil), f.Tags...)
	}
	return out
}

// ParseType 解析类型字符串 / parses a type name
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeFragment, TypeTodo, TypeBrainstorm, TypeReview:
		return Type(s), true
	}
	return "", false
}

// ParseStatus 解析状态字符串；空串合法（表示无状态）
// ParseStatus parses a status name; the empty string means absent.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusNone, StatusPending, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// CloneAll 深拷贝切片 / deep-copies a fragment slice
func CloneAll(in []Fragment) []Fragment {
	if in == nil {
		return nil
	}
	out := make([]Fragment, len(in))
	for i, f := range in {
		out[i] = f.clone()
	}
	return out
}

func formatID(n int64) string {
	return strconv.FormatInt(n, 10)
}
