package modbusclient

import (
	"sync"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"go.uber.org/zap"
)

// NewTransport builds a transport for cfg with the named driver. An empty
// driver selects simonvetter.
func NewTransport(driver string, cfg Config, logger *zap.Logger, instrument ...ModbusInstrument) (regmap.Transport, error) {
	inst := buildInstruments(logger, cfg.URL, instrument)
	switch driver {
	case "", DriverSimonvetter:
		return NewSimonvetterTransport(cfg, inst...)
	case DriverGoburrow:
		return NewGoburrowTransport(cfg, inst...)
	default:
		return nil, ErrUnknownDriver
	}
}

// Pool hands out one transport per link URL, so that slaves on the same
// RTU bus or TCP gateway share the connection and its lock. The link is
// opened on first Open and closed when the last user closes it.
type Pool struct {
	mu         sync.Mutex
	driver     string
	logger     *zap.Logger
	instrument []ModbusInstrument
	links      map[string]*link
	factory    func(cfg Config) (regmap.Transport, error)
}

type link struct {
	transport regmap.Transport
	users     int
	open      int
}

func NewPool(driver string, logger *zap.Logger, instrument ...ModbusInstrument) *Pool {
	p := &Pool{
		driver:     driver,
		logger:     logger,
		instrument: instrument,
		links:      make(map[string]*link),
	}
	p.factory = func(cfg Config) (regmap.Transport, error) {
		return NewTransport(p.driver, cfg, p.logger, p.instrument...)
	}
	return p
}

// NewPoolWithFactory is NewPool with a custom transport constructor.
func NewPoolWithFactory(factory func(cfg Config) (regmap.Transport, error)) *Pool {
	return &Pool{
		links:   make(map[string]*link),
		factory: factory,
	}
}

func (p *Pool) Get(cfg Config) (regmap.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.links[cfg.URL]
	if !ok {
		t, err := p.factory(cfg)
		if err != nil {
			return nil, err
		}
		l = &link{transport: t}
		p.links[cfg.URL] = l
	}
	l.users++
	return &sharedTransport{Transport: l.transport, pool: p, url: cfg.URL}, nil
}

func (p *Pool) Users(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.links[url]; ok {
		return l.users
	}
	return 0
}

type sharedTransport struct {
	regmap.Transport
	pool   *Pool
	url    string
	opened bool
}

func (s *sharedTransport) Open() error {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	if s.opened {
		return nil
	}
	l := s.pool.links[s.url]
	if l.open == 0 {
		if err := l.transport.Open(); err != nil {
			return err
		}
	}
	l.open++
	s.opened = true
	return nil
}

func (s *sharedTransport) Close() error {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	l := s.pool.links[s.url]
	l.open--
	if l.open > 0 {
		return nil
	}
	return l.transport.Close()
}

// Release drops one user of the link; the last release forgets it.
func (s *sharedTransport) Release() {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	l, ok := s.pool.links[s.url]
	if !ok {
		return
	}
	l.users--
	if l.users <= 0 {
		delete(s.pool.links, s.url)
	}
}

// Release returns t to its pool when it came from one.
func Release(t regmap.Transport) {
	if s, ok := t.(*sharedTransport); ok {
		s.Release()
	}
}
