package robot

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/iwtcode/cableRobot/models"
)

// measLog - журнал измерений в CSV: строка на привод на измерение,
// поля записи ACTUATOR_STATUS после метки времени и номера измерения.
// Пустой путь означает только подсчет без записи в файл.
type measLog struct {
	mu     sync.Mutex
	file   *os.File
	w      *csv.Writer
	seq    int
	counts map[uint8]int
}

func newMeasLog(path string) (*measLog, error) {
	l := &measLog{counts: make(map[uint8]int)}
	if path == "" {
		return l, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create measurement log: %w", err)
	}
	l.file = f
	l.w = csv.NewWriter(f)
	header := append([]string{"timestamp", "seq"}, models.RecordFields(models.ActuatorRecord)...)
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write measurement log header: %w", err)
	}
	return l, nil
}

func (l *measLog) Dump(ts time.Time, statuses []models.ActuatorStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	for _, st := range statuses {
		l.counts[st.ID]++
		if l.w == nil {
			continue
		}
		row := []string{ts.Format(time.RFC3339Nano), strconv.Itoa(l.seq)}
		for _, v := range st.Record(models.ActuatorRecord) {
			row = append(row, fmt.Sprint(v))
		}
		if err := l.w.Write(row); err != nil {
			return fmt.Errorf("write measurement: %w", err)
		}
	}
	if l.w != nil {
		l.w.Flush()
		return l.w.Error()
	}
	return nil
}

func (l *measLog) Count(id uint8) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[id]
}

func (l *measLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.w.Error()
	if cerr := l.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	l.file = nil
	l.w = nil
	return err
}
