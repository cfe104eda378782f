package mqtt_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/infra/mqtt"
)

func brokerReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("it-subscriber")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if lastErr = token.Error(); lastErr == nil {
			cli.Disconnect(100)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func runMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("mosquitto container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })

	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := brokerReady(broker, 5*time.Second); err != nil {
		t.Skipf("mosquitto not ready at %s: %v", broker, err)
	}
	return broker
}

func TestPlanPublisherWithMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	broker := runMosquitto(ctx, t)

	var (
		mu       sync.Mutex
		received = map[string][]byte{}
		summary  = make(chan struct{}, 1)
	)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("driver-app"))
	if tok := sub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	if tok := sub.Subscribe("it/#", 1, func(_ paho.Client, m paho.Message) {
		mu.Lock()
		received[m.Topic()] = m.Payload()
		mu.Unlock()
		if filepath.Base(m.Topic()) == "summary" {
			summary <- struct{}{}
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	pub, err := mqtt.NewPlanPublisher(mqtt.Config{Broker: broker, ClientID: "planner-it", TopicPrefix: "it", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer func() { _ = pub.Close() }()

	opt, err := optimizer.New(optimizer.Config{
		Depot: &model.Depot{Name: "lyon", Location: model.Location{Lat: 45.76, Lon: 4.84}},
	}, optimizer.WithSink(pub))
	if err != nil {
		t.Fatalf("optimizer: %v", err)
	}
	items := []model.DeliveryItem{
		{ID: "a", WeightKg: 30, Location: model.Location{Lat: 45.77, Lon: 4.85}},
		{ID: "b", WeightKg: 40, Location: model.Location{Lat: 45.74, Lon: 4.88}},
		{ID: "c", WeightKg: 50, Location: model.Location{Lat: 45.79, Lon: 4.80}},
	}
	plan, err := opt.OptimizeRoutes(ctx, items, 100, model.StrategyFirstFit)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	select {
	case <-summary:
	case <-time.After(5 * time.Second):
		t.Fatalf("summary not received")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, r := range plan.Routes {
		payload, ok := received[mqtt.RouteTopic("it", plan.PlanID, r.BinIndex)]
		if !ok {
			t.Fatalf("route %d not received", r.BinIndex)
		}
		var msg mqtt.RouteMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode route: %v", err)
		}
		if len(msg.Stops) != r.StopCount {
			t.Fatalf("route %d: got %d stops want %d", r.BinIndex, len(msg.Stops), r.StopCount)
		}
	}
}
