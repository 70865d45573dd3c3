package bot

import (
	"errors"
	"strconv"
	"strings"
)

// Действия inline-кнопок. Формат данных: "<act>:<n1>:<n2>...".
// Кнопки шага несут formID и эпоху, нажатия по устаревшим сообщениям отбрасываются.
const (
	actForms     = "forms"
	actForm      = "form"   // form:<formID>
	actAnswer    = "ans"    // ans:<formID>:<epoch>:<questionID>:<optionIdx>
	actSubmit    = "sub"    // sub:<formID>:<epoch>
	actBack      = "back"   // back:<formID>:<epoch>
	actNext      = "next"   // next:<formID>:<epoch>
	actReload    = "reload" // reload:<formID>:<epoch>
	actDelete    = "del"    // del:<formID>:<epoch>
	actDeleteYes = "delok"
	actDeleteNo  = "delno"
)

var errBadCallback = errors.New("malformed callback data")

func cbData(act string, nums ...int64) string {
	parts := make([]string, 0, len(nums)+1)
	parts = append(parts, act)
	for _, n := range nums {
		parts = append(parts, strconv.FormatInt(n, 10))
	}
	return strings.Join(parts, ":")
}

type callback struct {
	act    string
	formID int64
	epoch  uint64
	qID    int64
	optIdx int
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	cb := callback{act: parts[0]}
	nums := make([]int64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return cb, errBadCallback
		}
		nums = append(nums, n)
	}

	want := map[string]int{
		actForms: 0, actForm: 1, actAnswer: 4,
		actSubmit: 2, actBack: 2, actNext: 2, actReload: 2,
		actDelete: 2, actDeleteYes: 2, actDeleteNo: 2,
	}
	n, ok := want[cb.act]
	if !ok || len(nums) != n {
		return cb, errBadCallback
	}
	if n >= 1 {
		cb.formID = nums[0]
	}
	if n >= 2 {
		cb.epoch = uint64(nums[1])
	}
	if n == 4 {
		cb.qID = nums[2]
		cb.optIdx = int(nums[3])
	}
	return cb, nil
}
