package models

import "github.com/dustin/go-humanize"

// WriteCounter tracks transfer progress. Wrap the destination writer with
// io.TeeReader or io.MultiWriter and it reports every chunk through
// OnProgress with the bytes downloaded so far and the expected total
// (zero when the upstream omits Content-Length).
type WriteCounter struct {
	Total      int64
	Downloaded int64
	OnProgress func(downloaded, total int64)
}

// Write implements io.Writer.
func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Downloaded += int64(n)
	if wc.OnProgress != nil {
		wc.OnProgress(wc.Downloaded, wc.Total)
	}
	return n, nil
}

// Percent returns the completed fraction as 0..100, or zero when the total
// is unknown.
func (wc *WriteCounter) Percent() float64 {
	if wc.Total <= 0 {
		return 0
	}
	return float64(wc.Downloaded) / float64(wc.Total) * 100
}

// HumanSize renders a byte count the way item sizes are shown to consumers.
func HumanSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(n))
}
