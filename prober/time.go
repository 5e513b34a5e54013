package prober

import (
	"math/big"
	"time"
)

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func nanosBig(t time.Time) *big.Int {
	return big.NewInt(t.UnixNano())
}
