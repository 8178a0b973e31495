package transform

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// KeyRegistry - индекс «естественный ключ → суррогатный ключ» одного измерения.
// Ключи выдаются по возрастанию, начиная с max(существующих)+1, и никогда не переиспользуются.
type KeyRegistry struct {
	keys map[string]int64
	next int64
}

// NewKeyRegistry создает пустой реестр, первый выданный ключ равен 1
func NewKeyRegistry() *KeyRegistry {
	return &KeyRegistry{keys: make(map[string]int64), next: 1}
}

// Seed добавляет существующую пару из сохранённого измерения
func (r *KeyRegistry) Seed(naturalKey string, sk int64) {
	if sk == models.UnknownSK {
		return
	}
	r.keys[naturalKey] = sk
	if sk >= r.next {
		r.next = sk + 1
	}
}

// Lookup возвращает суррогатный ключ по естественному
func (r *KeyRegistry) Lookup(naturalKey string) (int64, bool) {
	sk, ok := r.keys[naturalKey]
	return sk, ok
}

// Register возвращает ключ для естественного ключа, выдавая новый при необходимости.
// Второй результат равен true, если ключ создан этим вызовом.
func (r *KeyRegistry) Register(naturalKey string) (int64, bool) {
	if sk, ok := r.keys[naturalKey]; ok {
		return sk, false
	}
	sk := r.next
	r.keys[naturalKey] = sk
	r.next++
	return sk, true
}

// Resolve возвращает ключ или UnknownSK
func (r *KeyRegistry) Resolve(naturalKey string) (int64, bool) {
	if naturalKey == "" {
		return models.UnknownSK, false
	}
	if sk, ok := r.keys[naturalKey]; ok {
		return sk, true
	}
	return models.UnknownSK, false
}

// Len возвращает число зарегистрированных ключей (без unknown)
func (r *KeyRegistry) Len() int {
	return len(r.keys)
}

// Next возвращает ключ, который будет выдан следующим
func (r *KeyRegistry) Next() int64 {
	return r.next
}
