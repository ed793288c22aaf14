package scheduler

// deriveSeed 使用 splitmix64 由主种子和流编号派生出互不相关的种子
func deriveSeed(base, stream int64) int64 {
	z := uint64(base) + uint64(stream+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
