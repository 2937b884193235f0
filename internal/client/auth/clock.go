package auth

import "time"

// Timer - отложенный вызов, который можно отменить
type Timer interface {
	Stop() bool
}

// Clock абстрагирует время для планировщика обновления
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock возвращает Clock на основе пакета time
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
