package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/messenger/config"
	"github.com/d60-Lab/messenger/internal/model"
	"github.com/d60-Lab/messenger/internal/repository"
	"github.com/d60-Lab/messenger/internal/service"
	"github.com/d60-Lab/messenger/pkg/database"
	"github.com/d60-Lab/messenger/pkg/logger"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func mustDo(err error) { if err != nil { panic(err) } }

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load())
	mustDo(logger.Init(cfg.Log.Level))
	db := must(database.InitDB(cfg))
	mustDo(database.Migrate(db))

	threadRepo := repository.NewThreadRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	svc := service.NewThreadService(threadRepo, participantRepo, messageRepo, nil)

	ctx := context.Background()

	THREADS := envInt("THREADS", 200)
	MEMBERS := envInt("MEMBERS", 5)
	MSGS := envInt("MSGS", 20)
	READS := envInt("READS", 2000)

	// seed: reader 出现在每个会话里，其余成员随机
	reader := model.Ref{ID: "u-reader", Type: "User"}
	fmt.Printf("seeding %d threads x %d members x %d messages...\n", THREADS, MEMBERS, MSGS)
	threadIDs := make([]string, 0, THREADS)
	for i := 0; i < THREADS; i++ {
		t := must(svc.CreateThread(ctx, fmt.Sprintf("thread %04d", i), nil))
		threadIDs = append(threadIDs, t.ID)
		refs := []model.Ref{reader}
		for j := 1; j < MEMBERS; j++ {
			refs = append(refs, model.Ref{ID: uuid.New().String(), Type: "User"})
		}
		must(svc.AddParticipants(ctx, t.ID, refs...))
		for k := 0; k < MSGS; k++ {
			author := refs[k%len(refs)]
			must(svc.Send(ctx, t.ID, fmt.Sprintf("message %d", k), &author))
		}
	}

	// unread count 热路径
	durs := make([]time.Duration, 0, READS)
	start := time.Now()
	for i := 0; i < READS; i++ {
		tid := threadIDs[i%len(threadIDs)]
		t0 := time.Now()
		must(svc.UserUnreadMessagesCount(ctx, tid, reader))
		durs = append(durs, time.Since(t0))
	}
	report("unread count", durs, time.Since(start))

	// inbox 排序
	durs = durs[:0]
	start = time.Now()
	for i := 0; i < READS/10; i++ {
		t0 := time.Now()
		must(threadRepo.SortByLatestMessage(ctx))
		durs = append(durs, time.Since(t0))
	}
	report("sort by latest message", durs, time.Since(start))

	// 带未读数的收件箱
	durs = durs[:0]
	start = time.Now()
	for i := 0; i < READS/10; i++ {
		t0 := time.Now()
		must(threadRepo.WhereHasUnread(ctx, reader))
		durs = append(durs, time.Since(t0))
	}
	report("where has unread", durs, time.Since(start))

	logger.Sync()
}

func report(name string, durs []time.Duration, total time.Duration) {
	if len(durs) == 0 {
		return
	}
	sorted := make([]time.Duration, len(durs))
	copy(sorted, durs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	pct := func(p float64) time.Duration {
		idx := int(math.Ceil(p*float64(len(sorted)))) - 1
		if idx < 0 {
			idx = 0
		}
		return sorted[idx]
	}
	qps := float64(len(durs)) / total.Seconds()
	fmt.Printf("%-24s n=%d qps=%.0f p50=%v p95=%v p99=%v max=%v\n",
		name, len(durs), qps, pct(0.50), pct(0.95), pct(0.99), sorted[len(sorted)-1])
}
