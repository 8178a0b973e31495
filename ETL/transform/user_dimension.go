package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// Типы принципалов
const (
	UserTypeUser             = "User"
	UserTypeServicePrincipal = "ServicePrincipal"
)

// UserNaturalKey возвращает естественный ключ пользователя (принципал в нижнем регистре)
func UserNaturalKey(principal string) string {
	return strings.ToLower(strings.TrimSpace(principal))
}

// ClassifyPrincipal определяет тип принципала и домен.
// GUID без домена - сервисный принципал (приложение).
func ClassifyPrincipal(principal string) (userType, domain string) {
	if _, err := uuid.Parse(principal); err == nil {
		return UserTypeServicePrincipal, ""
	}
	if at := strings.LastIndex(principal, "@"); at >= 0 && at < len(principal)-1 {
		return UserTypeUser, principal[at+1:]
	}
	return UserTypeUser, ""
}

// BuildOrExtendUsers дополняет dim_user новыми принципалами
func BuildOrExtendUsers(existing []models.UserDimension, rows []models.EnrichedActivity) []models.UserDimension {
	registry := NewKeyRegistry()
	hasUnknown := false
	for _, row := range existing {
		if row.UserSK == models.UnknownSK {
			hasUnknown = true
			continue
		}
		registry.Seed(row.UserPrincipal, row.UserSK)
	}

	firstSeen := make(map[string]*time.Time)
	for _, row := range rows {
		key := UserNaturalKey(row.SubmittedBy)
		if key == "" {
			continue
		}
		if _, known := registry.Lookup(key); known {
			continue
		}
		seen, ok := firstSeen[key]
		if t := row.EffectiveTime(); t != nil && (seen == nil || t.Before(*seen)) {
			v := *t
			firstSeen[key] = &v
		} else if !ok {
			firstSeen[key] = nil
		}
	}

	keys := make([]string, 0, len(firstSeen))
	for key := range firstSeen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]models.UserDimension, 0, len(existing)+len(keys)+1)
	if !hasUnknown {
		result = append(result, models.UserDimension{UserSK: models.UnknownSK, UserPrincipal: models.UnknownMember, UserType: models.UnknownMember})
	}
	result = append(result, existing...)
	for _, key := range keys {
		sk, _ := registry.Register(key)
		userType, domain := ClassifyPrincipal(key)
		result = append(result, models.UserDimension{
			UserSK:        sk,
			UserPrincipal: key,
			UserType:      userType,
			UserDomain:    domain,
			FirstSeenAt:   firstSeen[key],
		})
	}
	return result
}
