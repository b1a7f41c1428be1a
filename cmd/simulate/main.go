package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/catalog"
	"github.com/hackgods/hospital-booking/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	AdminToken   string
	Duration     time.Duration
	Workers      int
	Users        int
	Days         int
	BookingRatio float64
	CancelRatio  float64
	ConfirmRatio float64
	ReadRatio    float64
}

// DataPool is the shared state workers draw requests from. Dates spans only a
// few days so workers collide on the same doctor, date and time.
type DataPool struct {
	Users      []string
	Selections []catalog.Selection
	Dates      []string

	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.IntN(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), pct(50), pct(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking    OperationMetrics
	Confirm    OperationMetrics
	Cancel     OperationMetrics
	ReadByID   OperationMetrics
	ListByUser OperationMetrics
	ListByDoc  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	log     *zap.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New("simulate", getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(loadConfig(), log); err != nil {
		logger.Exit(log, "simulation failed", err)
	}
}

func run(cfg SimConfig, log *zap.Logger) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	sim := &Simulator{
		config: cfg,
		pool:   buildDataPool(cat, cfg),
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	log.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Int("users", len(sim.pool.Users)),
		zap.Int("doctors", len(sim.pool.Selections)),
	)

	sim.Run()
	sim.PrintReport()

	if err := sim.VerifySlots(context.Background()); err != nil {
		return fmt.Errorf("slot verification: %w", err)
	}
	return nil
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:3000"), "/"),
		AdminToken:   os.Getenv("SIM_ADMIN_TOKEN"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Users:        getInt("SIM_USERS", 200),
		Days:         getInt("SIM_DAYS", 2),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		CancelRatio:  getFloat("SIM_CANCEL_RATIO", 0.1),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.15),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.25),
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.CancelRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Users <= 0 || cfg.Days <= 0 {
		return fmt.Errorf("SIM_USERS and SIM_DAYS must be > 0")
	}
	return nil
}

func buildDataPool(cat *catalog.Catalog, cfg SimConfig) *DataPool {
	dp := &DataPool{Selections: cat.Selections()}
	for i := 0; i < cfg.Users; i++ {
		dp.Users = append(dp.Users, gofakeit.UUID())
	}
	start := time.Now().AddDate(0, 0, 1)
	for d := 0; d < cfg.Days; d++ {
		dp.Dates = append(dp.Dates, start.AddDate(0, 0, d).Format(time.DateOnly))
	}
	return dp
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, uint64(workerID))
		}(i)
	}
	wg.Wait()
	s.log.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID uint64) {
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), workerID))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doTransition(ctx, rng, "cancel", &s.metrics.Cancel)
		case r < s.config.BookingRatio+s.config.CancelRatio+s.config.ConfirmRatio:
			s.doTransition(ctx, rng, "confirm", &s.metrics.Confirm)
		default:
			switch rng.IntN(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doListByUser(ctx, rng)
			case 2:
				s.doListByDoctor(ctx, rng)
			}
		}
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *Simulator) call(ctx context.Context, method, path string, body any, admin bool) (int, apiResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, apiResponse{}, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, apiResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin && s.config.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AdminToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, apiResponse{}, err
	}
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, out, err
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out, nil
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	sel := s.pool.Selections[rng.IntN(len(s.pool.Selections))]
	if len(sel.Times) == 0 {
		return
	}
	body := map[string]string{
		"userId":       s.pool.Users[rng.IntN(len(s.pool.Users))],
		"hospitalId":   sel.HospitalID,
		"hospitalName": sel.HospitalName,
		"categoryId":   sel.CategoryID,
		"categoryName": sel.CategoryName,
		"doctorId":     sel.DoctorID,
		"doctorName":   sel.DoctorName,
		"date":         s.pool.Dates[rng.IntN(len(s.pool.Dates))],
		"time":         sel.Times[rng.IntN(len(sel.Times))],
	}

	start := time.Now()
	code, resp, err := s.call(ctx, http.MethodPost, "/api/appointments", body, false)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Booking.Record(latency, false, false)
		return
	}

	if code == http.StatusCreated {
		var appt appointment.Appointment
		if json.Unmarshal(resp.Data, &appt) == nil && appt.ID != "" {
			s.pool.AddAppointment(appt.ID)
		}
	}
	conflict := code == http.StatusBadRequest && strings.Contains(resp.Message, "already been booked")
	s.metrics.Booking.Record(latency, code == http.StatusCreated, conflict)
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand, action string, om *OperationMetrics) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	code, _, err := s.call(ctx, http.MethodPatch, "/api/appointments/"+id+"/"+action, nil, false)
	om.Record(time.Since(start), err == nil && code == http.StatusOK, code == http.StatusConflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	code, _, err := s.call(ctx, http.MethodGet, "/api/appointments/"+id, nil, false)
	s.metrics.ReadByID.Record(time.Since(start), err == nil && code == http.StatusOK, false)
}

func (s *Simulator) doListByUser(ctx context.Context, rng *rand.Rand) {
	user := s.pool.Users[rng.IntN(len(s.pool.Users))]

	start := time.Now()
	code, _, err := s.call(ctx, http.MethodGet, "/api/appointments/user/"+user, nil, false)
	s.metrics.ListByUser.Record(time.Since(start), err == nil && code == http.StatusOK, false)
}

func (s *Simulator) doListByDoctor(ctx context.Context, rng *rand.Rand) {
	sel := s.pool.Selections[rng.IntN(len(s.pool.Selections))]
	date := s.pool.Dates[rng.IntN(len(s.pool.Dates))]

	start := time.Now()
	code, _, err := s.call(ctx, http.MethodGet,
		fmt.Sprintf("/api/appointments/all?doctorId=%s&date=%s", sel.DoctorID, date), nil, true)
	s.metrics.ListByDoc.Record(time.Since(start), err == nil && code == http.StatusOK, false)
}

// VerifySlots reads every appointment back and fails if any slot ended up
// with more than one pending or confirmed booking.
func (s *Simulator) VerifySlots(ctx context.Context) error {
	code, resp, err := s.call(ctx, http.MethodGet, "/api/appointments/all", nil, true)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("list all appointments: status %d", code)
	}

	var appts []appointment.Appointment
	if err := json.Unmarshal(resp.Data, &appts); err != nil {
		return fmt.Errorf("decode appointments: %w", err)
	}

	winners := make(map[string][]string)
	for _, a := range appts {
		if a.Status.Active() {
			key := a.Slot().Key()
			winners[key] = append(winners[key], a.ID)
		}
	}

	doubled := 0
	for key, ids := range winners {
		if len(ids) > 1 {
			doubled++
			s.log.Error("slot double booked", zap.String("slot", key), zap.Strings("appointment_ids", ids))
		}
	}

	fmt.Printf("Slots held: %d  Appointments total: %d  Double bookings: %d\n", len(winners), len(appts), doubled)
	if doubled > 0 {
		return fmt.Errorf("%d slots double booked", doubled)
	}
	return nil
}

func (s *Simulator) PrintReport() {
	line := strings.Repeat("=", 80)
	fmt.Println("\n" + line)
	fmt.Println("SIMULATION REPORT")
	fmt.Println(line)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n\n", s.config.Workers)

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by user", &s.metrics.ListByUser)
	printOperationReport("List by doctor and date", &s.metrics.ListByDoc)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
