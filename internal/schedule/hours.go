// internal/schedule/hours.go
package schedule

import (
	"math/rand"
	"sort"
)

// Window 表示一个按小时计的睡眠时间段 [Start, End)，支持跨夜（Start > End）
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains 判断小时h是否落在睡眠时间段内（跨夜感知）
func (w Window) Contains(h int) bool {
	if w.Start <= w.End {
		return w.Start <= h && h < w.End
	}
	// 跨夜睡眠（例如22点到6点）
	return h >= w.Start || h < w.End
}

// Hours 返回时间段覆盖的全部小时
func (w Window) Hours() []int {
	var hours []int
	if w.Start <= w.End {
		for h := w.Start; h < w.End; h++ {
			hours = append(hours, h)
		}
		return hours
	}
	for h := w.Start; h < 24; h++ {
		hours = append(hours, h)
	}
	for h := 0; h < w.End; h++ {
		hours = append(hours, h)
	}
	return hours
}

// AvailableHours 返回一天中不在睡眠时间段内的小时，升序
func AvailableHours(sleep Window) []int {
	var available []int
	for h := 0; h < 24; h++ {
		if !sleep.Contains(h) {
			available = append(available, h)
		}
	}
	return available
}

// GenerateActiveHours 为一天生成随机活跃小时集合，避开睡眠时间。
// 数量在[minCount, maxCount]内均匀随机，并截断到可用小时数；
// 结果为升序且无重复。睡眠时间吞掉全天时返回空集而不是报错。
// rng由调用方注入，测试时可传入固定种子。
func GenerateActiveHours(rng *rand.Rand, sleep Window, minCount, maxCount int) []int {
	available := AvailableHours(sleep)
	if len(available) == 0 {
		return nil
	}

	if minCount < 0 {
		minCount = 0
	}
	if maxCount < minCount {
		maxCount = minCount
	}

	count := minCount
	if maxCount > minCount {
		count = minCount + rng.Intn(maxCount-minCount+1)
	}
	if count > len(available) {
		count = len(available)
	}

	// 打乱后取前count个，保证无重复
	shuffled := make([]int, len(available))
	copy(shuffled, available)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	active := shuffled[:count]
	sort.Ints(active)
	return active
}
