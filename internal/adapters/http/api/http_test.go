package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/swatrank/internal/adapters/http/api"
	"github.com/okian/swatrank/internal/adapters/repository"
	service "github.com/okian/swatrank/internal/app"
	"github.com/okian/swatrank/internal/config"
	"github.com/okian/swatrank/internal/domain/collation"
	"github.com/okian/swatrank/internal/domain/types"
	"github.com/okian/swatrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer() (*httptest.Server, *service.Service) {
	cfg := config.New()
	cfg.Modes = config.DefaultModes()
	coll, err := collation.New(collation.DefaultLocale)
	if err != nil {
		panic(err)
	}
	svc := service.New(
		service.WithCatalog(cfg.Catalog()),
		service.WithStore(repository.NewMemoryStore()),
		service.WithComparator(coll.Func()),
	)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func do(method, url, body string) *http.Response {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		panic(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	return resp
}

func decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		panic(err)
	}
}

func readAll(resp *http.Response) string {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func addParticipant(base, mode, name string) types.Participant {
	var p types.Participant
	decode(do(http.MethodPost, base+"/modes/"+mode+"/participants", `{"name":"`+name+`"}`), &p)
	return p
}

func TestServer_Register(t *testing.T) {
	Convey("Given a running API server", t, func() {
		srv, svc := newTestServer()
		defer srv.Close()
		defer svc.Stop()

		Convey("When requesting the health endpoint", func() {
			resp := do(http.MethodGet, srv.URL+"/healthz", "")
			resp.Body.Close()

			Convey("Then metrics should be served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When requesting stats", func() {
			var stats map[string]any
			resp := do(http.MethodGet, srv.URL+"/stats", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &stats)

			Convey("Then the service state should be reported", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["publishing"], ShouldEqual, false)
			})
		})

		Convey("When listing stages of a mode", func() {
			var stages []types.Stage
			resp := do(http.MethodGet, srv.URL+"/modes/piyade/stages", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &stages)

			Convey("Then they should keep configured order", func() {
				So(len(stages), ShouldEqual, 4)
				So(stages[0].ID, ShouldEqual, "atis")
				So(stages[3].Metric, ShouldEqual, "count")
			})
		})

		Convey("When using an unknown mode", func() {
			var body map[string]string
			resp := do(http.MethodGet, srv.URL+"/modes/yuzme/overall", "")
			decode(resp, &body)

			Convey("Then it should be not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "unknown_mode")
			})
		})

		Convey("When using the wrong method", func() {
			resp := do(http.MethodPost, srv.URL+"/modes/piyade/overall", "{}")
			resp.Body.Close()

			Convey("Then the mux should reject it", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestParticipantsHandler(t *testing.T) {
	Convey("Given a running API server", t, func() {
		srv, svc := newTestServer()
		defer srv.Close()
		defer svc.Stop()
		base := srv.URL + "/modes/piyade/participants"

		Convey("When creating a participant", func() {
			resp := do(http.MethodPost, base, `{"name":"  Ali   Yılmaz "}`)
			var p types.Participant
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			decode(resp, &p)

			Convey("Then the name should be normalized and an id assigned", func() {
				So(p.ID, ShouldNotBeEmpty)
				So(p.Name, ShouldEqual, "Ali Yılmaz")
			})

			Convey("And renaming should update it", func() {
				var renamed types.Participant
				resp := do(http.MethodPatch, base+"/"+p.ID, `{"name":"Ali Demir"}`)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				decode(resp, &renamed)
				So(renamed.Name, ShouldEqual, "Ali Demir")
				So(renamed.ID, ShouldEqual, p.ID)
			})

			Convey("And deleting should remove it from the roster", func() {
				resp := do(http.MethodDelete, base+"/"+p.ID, "")
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

				var list []types.Participant
				decode(do(http.MethodGet, base, ""), &list)
				So(list, ShouldBeEmpty)
			})

			Convey("And the other mode should not see it", func() {
				var list []types.Participant
				decode(do(http.MethodGet, srv.URL+"/modes/keskin/participants", ""), &list)
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When creating a participant with a blank name", func() {
			var body map[string]string
			resp := do(http.MethodPost, base, `{"name":"   "}`)
			decode(resp, &body)

			Convey("Then it should be a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "invalid_name")
			})
		})

		Convey("When sending malformed JSON", func() {
			resp := do(http.MethodPost, base, `{"name":`)
			resp.Body.Close()

			Convey("Then it should be a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When renaming an unknown participant", func() {
			resp := do(http.MethodPatch, base+"/missing", `{"name":"Veli"}`)
			resp.Body.Close()

			Convey("Then it should be not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestResultsAndStandings(t *testing.T) {
	Convey("Given participants with recorded results", t, func() {
		srv, svc := newTestServer()
		defer srv.Close()
		defer svc.Stop()
		mode := srv.URL + "/modes/piyade"

		mehmet := addParticipant(srv.URL, "piyade", "Mehmet Kaya")
		ahmet := addParticipant(srv.URL, "piyade", "Ahmet Şen")
		cem := addParticipant(srv.URL, "piyade", "Cem Ak")

		put := func(pid, stage, value string) int {
			resp := do(http.MethodPut, mode+"/results",
				`{"participant_id":"`+pid+`","stage_id":"`+stage+`","value":`+value+`}`)
			resp.Body.Close()
			return resp.StatusCode
		}
		So(put(mehmet.ID, "atis", "20"), ShouldEqual, http.StatusOK)
		So(put(ahmet.ID, "atis", "20"), ShouldEqual, http.StatusOK)
		So(put(mehmet.ID, "kuvvet", "40"), ShouldEqual, http.StatusOK)
		So(put(ahmet.ID, "kuvvet", "40"), ShouldEqual, http.StatusOK)

		Convey("When listing results", func() {
			var list []types.Measurement
			decode(do(http.MethodGet, mode+"/results", ""), &list)

			Convey("Then every recorded value should be returned", func() {
				So(len(list), ShouldEqual, 4)
			})
		})

		Convey("When reading the overall table", func() {
			var overall types.Overall
			resp := do(http.MethodGet, mode+"/overall", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &overall)

			Convey("Then tied totals should be ordered by name", func() {
				So(len(overall.Standings), ShouldEqual, 3)
				So(overall.Standings[0].Name, ShouldEqual, "Ahmet Şen")
				So(overall.Standings[0].Total, ShouldEqual, 60.0)
				So(overall.Standings[1].Name, ShouldEqual, "Mehmet Kaya")
				So(overall.Standings[1].Position, ShouldEqual, 2)
				So(overall.Standings[2].ParticipantID, ShouldEqual, cem.ID)
				So(overall.Standings[2].Total, ShouldEqual, 0.0)
			})

			Convey("Then every standing should carry a full breakdown", func() {
				So(len(overall.Standings[0].Stages), ShouldEqual, 4)
				So(*overall.Standings[0].Stages[0].Rank, ShouldEqual, 1)
				So(overall.Standings[0].Stages[1].Rank, ShouldBeNil)
			})
		})

		Convey("When reading a masked stage ranking", func() {
			var table types.StageTable
			resp := do(http.MethodGet, mode+"/stages/atis/ranking?masked=true", "")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			decode(resp, &table)

			Convey("Then ranked rows should come first with masked names", func() {
				So(len(table.Rows), ShouldEqual, 3)
				So(table.Rows[0].Name, ShouldEqual, "Ahmet Ş***")
				So(*table.Rows[1].Rank, ShouldEqual, 1)
				So(table.Rows[2].ParticipantID, ShouldEqual, cem.ID)
				So(table.Rows[2].Rank, ShouldBeNil)
			})
		})

		Convey("When reading an unknown stage", func() {
			var body map[string]string
			resp := do(http.MethodGet, mode+"/stages/yuzme/ranking", "")
			decode(resp, &body)

			Convey("Then it should be not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "unknown_stage")
			})
		})

		Convey("When clearing a value with null", func() {
			So(put(mehmet.ID, "kuvvet", "null"), ShouldEqual, http.StatusOK)
			var overall types.Overall
			decode(do(http.MethodGet, mode+"/overall", ""), &overall)

			Convey("Then the participant should lose the stage points", func() {
				So(overall.Standings[1].Name, ShouldEqual, "Mehmet Kaya")
				So(overall.Standings[1].Total, ShouldEqual, 40.0)
			})
		})

		Convey("When recording invalid values", func() {
			Convey("Then a negative value should be rejected", func() {
				So(put(mehmet.ID, "atis", "-1"), ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then an unknown stage should be not found", func() {
				So(put(mehmet.ID, "yuzme", "1"), ShouldEqual, http.StatusNotFound)
			})
			Convey("Then an unknown participant should be not found", func() {
				So(put("ghost", "atis", "1"), ShouldEqual, http.StatusNotFound)
			})
			Convey("Then a missing stage id should be a bad request", func() {
				resp := do(http.MethodPut, mode+"/results", `{"participant_id":"`+mehmet.ID+`","value":1}`)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When clearing all results of a participant", func() {
			resp := do(http.MethodDelete, mode+"/results?participant_id="+ahmet.ID, "")
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

			var list []types.Measurement
			decode(do(http.MethodGet, mode+"/results", ""), &list)

			Convey("Then only other participants should keep results", func() {
				So(len(list), ShouldEqual, 2)
				for _, m := range list {
					So(m.ParticipantID, ShouldEqual, mehmet.ID)
				}
			})
		})

		Convey("When clearing without a participant id", func() {
			resp := do(http.MethodDelete, mode+"/results", "")
			resp.Body.Close()

			Convey("Then it should be a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestExportHandler(t *testing.T) {
	Convey("Given a mode with results", t, func() {
		srv, svc := newTestServer()
		defer srv.Close()
		defer svc.Stop()
		mode := srv.URL + "/modes/piyade"

		p := addParticipant(srv.URL, "piyade", "Zeynep Uçar")
		resp := do(http.MethodPut, mode+"/results", `{"participant_id":"`+p.ID+`","stage_id":"atis","value":12.5}`)
		resp.Body.Close()

		Convey("When downloading the overall export", func() {
			resp := do(http.MethodGet, mode+"/export.csv", "")
			defer resp.Body.Close()
			body := readAll(resp)

			Convey("Then it should be a CSV attachment with a byte order mark", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/csv")
				So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "swat-piyade-export-")
				So(body, ShouldStartWith, "\uFEFFGenel Sıra;Katılımcı;")
				So(body, ShouldContainSubstring, "1;Zeynep Uçar;")
				So(body, ShouldContainSubstring, ";40\n")
			})
		})

		Convey("When downloading a masked stage export", func() {
			resp := do(http.MethodGet, mode+"/stages/atis/export.csv?masked=true", "")
			defer resp.Body.Close()
			body := readAll(resp)

			Convey("Then the stage table should be rendered", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "swat-piyade-atis-ranking.csv")
				So(body, ShouldContainSubstring, "Sıra;Katılımcı;Süre (dk);Puan")
				So(body, ShouldContainSubstring, "1;Zeynep U***;12,5;100")
			})
		})

		Convey("When downloading an unknown stage export", func() {
			resp := do(http.MethodGet, mode+"/stages/yuzme/export.csv", "")
			resp.Body.Close()

			Convey("Then it should be not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the masked flag is malformed", func() {
			resp := do(http.MethodGet, mode+"/export.csv?masked=maybe", "")
			resp.Body.Close()

			Convey("Then it should be a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestErrorWrapping(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes should both be matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then wrapping nil should stay nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})

		Convey("Then a bare kind should render the op", func() {
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
		})
	})
}
