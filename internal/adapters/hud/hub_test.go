package hud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/speedhud/internal/domain/model"
	"github.com/okian/speedhud/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(h *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer, err := uuid.Parse(r.URL.Query().Get("viewer"))
		if err != nil {
			http.Error(w, "bad viewer", http.StatusBadRequest)
			return
		}
		_ = h.Serve(w, r, viewer)
	}))
}

func dial(t *testing.T, srv *httptest.Server, viewer uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?viewer=" + viewer.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func readFrame(conn *websocket.Conn) (Frame, error) {
	var f Frame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	err := conn.ReadJSON(&f)
	return f, err
}

func TestHub(t *testing.T) {
	ctx := context.Background()

	Convey("Given a hub behind a test server", t, func() {
		h := NewHub(WithLogger(logger.Discard()), WithSendBuffer(8))
		srv := newTestServer(h)
		defer srv.Close()
		defer h.Close()

		alex := uuid.New()

		Convey("When nobody is connected", func() {
			err := h.Chat(ctx, alex, "hello")

			Convey("Then delivery should fail as unreachable", func() {
				So(errors.Is(err, ErrUnreachable), ShouldBeTrue)
				So(h.Connected(alex), ShouldBeFalse)
			})
		})

		Convey("When a viewer connects", func() {
			conn := dial(t, srv, alex)
			defer conn.Close()
			So(waitUntil(func() bool { return h.Connected(alex) }), ShouldBeTrue)

			Convey("Then action bar updates should arrive as JSON frames", func() {
				So(h.ActionBar(ctx, alex, model.HUDUpdate{Viewer: alex, Speed: 36, UnitID: "kmh", Text: "§7Speed: §c36.00 km/h"}), ShouldBeNil)
				f, err := readFrame(conn)
				So(err, ShouldBeNil)
				So(f.Type, ShouldEqual, FrameActionBar)
				So(f.HUD.Speed, ShouldEqual, 36)
				So(f.HUD.Text, ShouldEqual, "§7Speed: §c36.00 km/h")
			})

			Convey("Then chat text should arrive", func() {
				So(h.Chat(ctx, alex, "done"), ShouldBeNil)
				f, err := readFrame(conn)
				So(err, ShouldBeNil)
				So(f.Type, ShouldEqual, FrameChat)
				So(f.Text, ShouldEqual, "done")
			})

			Convey("Then disconnecting should unregister the viewer", func() {
				_ = conn.Close()
				So(waitUntil(func() bool { return !h.Connected(alex) }), ShouldBeTrue)
				So(h.Count(), ShouldEqual, 0)
			})

			Convey("Then a second connection should replace the first", func() {
				second := dial(t, srv, alex)
				defer second.Close()

				_, err := readFrame(conn)
				So(err, ShouldNotBeNil)
				So(h.Count(), ShouldEqual, 1)

				So(h.Chat(ctx, alex, "to the new one"), ShouldBeNil)
				f, err := readFrame(second)
				So(err, ShouldBeNil)
				So(f.Text, ShouldEqual, "to the new one")
			})
		})

		Convey("When a command handler is installed", func() {
			h.SetCommandHandler(func(_ context.Context, viewer uuid.UUID, line string) []string {
				return []string{"you said " + line, viewer.String()}
			})
			conn := dial(t, srv, alex)
			defer conn.Close()
			So(waitUntil(func() bool { return h.Connected(alex) }), ShouldBeTrue)

			So(conn.WriteMessage(websocket.TextMessage, []byte("  topspeed ")), ShouldBeNil)

			Convey("Then the replies should come back as chat frames in order", func() {
				f1, err := readFrame(conn)
				So(err, ShouldBeNil)
				f2, err := readFrame(conn)
				So(err, ShouldBeNil)
				So(f1.Text, ShouldEqual, "you said topspeed")
				So(f2.Text, ShouldEqual, alex.String())
			})
		})
	})
}
