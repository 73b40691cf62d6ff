package xhealth_test

import (
	"fmt"
	"time"

	"github.com/omeyang/rotakit/pkg/rotation/xclassify"
	"github.com/omeyang/rotakit/pkg/rotation/xhealth"
)

func ExampleTracker() {
	tr := xhealth.NewTracker()

	// 选中三次：两次限流失败，一次成功
	tr.Touch(time.Now())
	tr.RecordFailure(xclassify.KindRateLimited)
	tr.Touch(time.Now())
	tr.RecordFailure(xclassify.KindRateLimited)
	tr.Touch(time.Now())
	tr.RecordSuccess()

	s := tr.Stats()
	fmt.Println("requests:", s.Requests)
	fmt.Println("errors:", s.Errors)
	fmt.Println("consecutive:", s.ConsecutiveErrors)
	fmt.Printf("error rate: %.2f\n", s.ErrorRate())
	// Output:
	// requests: 3
	// errors: 2
	// consecutive: 0
	// error rate: 0.67
}

func ExampleNewBoard() {
	board, err := xhealth.NewBoard([]string{"key-1", "key-2"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	tr, _ := board.Tracker("key-1")
	tr.Touch(time.Now())
	tr.RecordFailure(xclassify.KindNotFound)

	s, _ := board.Stats("key-1")
	fmt.Println("requests:", s.Requests)
	fmt.Println("errors:", s.Errors) // NOT_FOUND 不计入错误
	fmt.Println("last kind:", *s.LastErrorKind)
	// Output:
	// requests: 1
	// errors: 0
	// last kind: NOT_FOUND
}
