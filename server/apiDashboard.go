package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/identity"
)

type dashboardStatsJSON struct {
	ContentTypes []dashboardTypeCountJSON `json:"contentTypes"`
	TotalEntries int64                    `json:"totalEntries"`
	AuditTotals  map[string]int64         `json:"auditTotals"`
	Sessions     any                      `json:"sessions"`
}

type dashboardTypeCountJSON struct {
	Name       string `json:"name"`
	PluralName string `json:"pluralName"`
	Count      int64  `json:"count"`
}

// httpDashboardStats aggregates per-content-type entry counts from the
// upstream with audit-action totals. Pure arithmetic over the core.
func (s *Server) httpDashboardStats(w http.ResponseWriter, r *http.Request, params httprouter.Params, id *identity.Identity) {
	types, err := s.Strapi.ListContentTypes(id.Role)
	checkUpstream(err)

	stats := dashboardStatsJSON{
		ContentTypes: []dashboardTypeCountJSON{},
		AuditTotals:  map[string]int64{},
	}
	for _, ct := range types {
		if ct.Kind != "collectionType" || ct.PluralName == "" {
			continue
		}
		count := s.countEntries(ct.PluralName, id)
		stats.ContentTypes = append(stats.ContentTypes, dashboardTypeCountJSON{
			Name:       ct.Name,
			PluralName: ct.PluralName,
			Count:      count,
		})
		stats.TotalEntries += count
	}
	if totals, err := s.Users.AuditActionTotals(); err == nil {
		stats.AuditTotals = totals
	} else {
		s.Log.Errorf("Dashboard audit totals failed: %v", err)
	}
	stats.Sessions = s.Sessions.Stats()
	www.SendJSON(w, &stats)
}

// countEntries asks the upstream for one-page-of-one and reads the total out
// of the pagination metadata. A type that fails to count reports zero rather
// than failing the whole dashboard.
func (s *Server) countEntries(plural string, id *identity.Identity) int64 {
	body, err := s.Strapi.Forward("GET", fmt.Sprintf("/api/%v?pagination[pageSize]=1", plural), nil, id.Role)
	if err != nil {
		s.Log.Warnf("Dashboard count for '%v' failed: %v", plural, err)
		return 0
	}
	envelope := struct {
		Meta struct {
			Pagination struct {
				Total int64 `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0
	}
	return envelope.Meta.Pagination.Total
}
