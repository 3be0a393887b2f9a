// person_cache.go — LRU-кэш людей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable. Заполняется после каждой
// загрузки списка; поиск по _id и по DNI сначала идёт в кэш, затем в backend.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/inglucasmoreno/examen-conducir-portal-client/internal/domain/model"
)

// Prometheus-метрики кэша людей.
var (
	personCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pc_person_cache_hits_total",
		Help: "Общее количество попаданий в кэш людей.",
	}, []string{"key"})
	personCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pc_person_cache_misses_total",
		Help: "Общее количество промахов кэша людей.",
	}, []string{"key"})
)

// PersonCache — кэш людей по _id и по DNI.
type PersonCache struct {
	byID  *expirable.LRU[string, model.Person]
	byDNI *expirable.LRU[string, model.Person]
}

// NewPersonCache создаёт кэш указанной ёмкости и TTL.
func NewPersonCache(maxSize int, ttl time.Duration) *PersonCache {
	return &PersonCache{
		byID:  expirable.NewLRU[string, model.Person](maxSize, nil, ttl),
		byDNI: expirable.NewLRU[string, model.Person](maxSize, nil, ttl),
	}
}

// Get возвращает человека по _id.
func (c *PersonCache) Get(id string) (model.Person, bool) {
	p, ok := c.byID.Get(id)
	if ok {
		personCacheHitsTotal.WithLabelValues("id").Inc()
		return p, true
	}
	personCacheMissesTotal.WithLabelValues("id").Inc()
	return model.Person{}, false
}

// ByNationalID возвращает человека по DNI.
func (c *PersonCache) ByNationalID(dni string) (model.Person, bool) {
	p, ok := c.byDNI.Get(dni)
	if ok {
		personCacheHitsTotal.WithLabelValues("dni").Inc()
		return p, true
	}
	personCacheMissesTotal.WithLabelValues("dni").Inc()
	return model.Person{}, false
}

// Add добавляет человека. Неполные ссылки (только _id) не кэшируются.
func (c *PersonCache) Add(p model.Person) {
	if p.ID == "" || p.NationalID == "" {
		return
	}
	c.byID.Add(p.ID, p)
	c.byDNI.Add(p.NationalID, p)
}

// AddAll добавляет список людей.
func (c *PersonCache) AddAll(persons []model.Person) {
	for _, p := range persons {
		c.Add(p)
	}
}

// Len возвращает количество людей в кэше.
func (c *PersonCache) Len() int {
	return c.byID.Len()
}
