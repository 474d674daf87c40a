package fragment

import (
	"strings"
	"time"
)

type seedEntry struct {
	id     string
	age    time.Duration
	typ    Type
	zh, en string
	zhTags []string
	enTags []string
}

var seedEntries = []seedEntry{
	{
		id: "mock-1", age: 2 * time.Hour, typ: TypeFragment,
		zh:     "下个季度想尝试用 WebGPU 重构渲染管线，提升移动端 3D 画布的流畅度。",
		en:     "Next quarter, try rebuilding the render pipeline on WebGPU to smooth out the 3D canvas on mobile.",
		zhTags: []string{"技术探索", "工作"},
		enTags: []string{"tech", "work"},
	},
	{
		id: "mock-2", age: 5 * time.Hour, typ: TypeFragment,
		zh:     "灵感：一个基于物理引擎的笔记应用，所有的碎片像原子一样可以互相吸引或排斥。",
		en:     "Idea: a note app built on a physics engine where fragments attract or repel each other like atoms.",
		zhTags: []string{"创意", "产品"},
		enTags: []string{"idea", "product"},
	},
	{
		id: "mock-3", age: 24 * time.Hour, typ: TypeTodo,
		zh:     "准备周一的团队同步会议，重点讨论 AI 录入系统的准确率提升方案。",
		en:     "Prepare Monday's team sync, focusing on how to improve accuracy of the AI capture pipeline.",
		zhTags: []string{"待办", "管理"},
		enTags: []string{"todo", "management"},
	},
	{
		id: "mock-4", age: 28 * time.Hour, typ: TypeFragment,
		zh:     "书单推荐：卡洛·罗韦利的《时间的秩序》，探讨物理学与时间的本质。",
		en:     "Reading list: Carlo Rovelli's \"The Order of Time\", on physics and the nature of time.",
		zhTags: []string{"阅读", "自我提升"},
		enTags: []string{"reading", "growth"},
	},
	{
		id: "mock-5", age: 48 * time.Hour, typ: TypeTodo,
		zh:     "周六去那家新开的咖啡店试试他们的埃塞俄比亚手冲，顺便带上 iPad 写写代码。",
		en:     "Saturday: try the Ethiopian pour-over at the new coffee shop and bring the iPad to write some code.",
		zhTags: []string{"生活", "探店"},
		enTags: []string{"life", "explore"},
	},
}

// Seed 返回演示用的五条初始碎片，时间相对 now 计算
// Seed returns the five demo fragments, timestamped relative to now.
// Locales starting with "zh" get the Chinese set; everything else gets English.
func Seed(locale string, now time.Time) []Fragment {
	zh := strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "zh")
	out := make([]Fragment, 0, len(seedEntries))
	for _, e := range seedEntries {
		f := Fragment{
			ID:        e.id,
			CreatedAt: now.Add(-e.age).UnixMilli(),
			Type:      e.typ,
			Status:    StatusPending,
		}
		if zh {
			f.Content = e.zh
			f.Tags = append([]string(nil), e.zhTags...)
		} else {
			f.Content = e.en
			f.Tags = append([]string(nil), e.enTags...)
		}
		out = append(out, f)
	}
	return out
}
