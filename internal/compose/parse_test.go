package compose

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

const sampleCompose = `
services:
  mysql:
    image: mysql:8.0
    environment:
      MYSQL_DATABASE: app
      MYSQL_ROOT_PASSWORD: changeme
    ports:
      - "3306:3306"
    restart: unless-stopped
  kafka:
    image: bitnami/kafka:3.6
    command: ["/opt/bitnami/scripts/kafka/run.sh"]
    ports:
      - "9092:9092"
`

func TestParseDesiredState(t *testing.T) {
	state, err := ParseDesiredState(context.Background(), []byte(sampleCompose), "ci-infra")
	if err != nil {
		t.Fatalf("ParseDesiredState() error: %v", err)
	}

	if got := state.Names(); !reflect.DeepEqual(got, []string{"kafka", "mysql"}) {
		t.Fatalf("Names() = %v", got)
	}

	mysql := state.Services["mysql"]
	if mysql.Image != "mysql:8.0" {
		t.Errorf("mysql image = %q", mysql.Image)
	}
	if mysql.Restart != "unless-stopped" {
		t.Errorf("mysql restart = %q", mysql.Restart)
	}
	wantEnv := []string{"MYSQL_DATABASE=app", "MYSQL_ROOT_PASSWORD=changeme"}
	if !reflect.DeepEqual(mysql.Env, wantEnv) {
		t.Errorf("mysql env = %v, want %v", mysql.Env, wantEnv)
	}
	if len(mysql.Ports) != 1 {
		t.Fatalf("mysql ports = %v", mysql.Ports)
	}
	port := mysql.Ports[0]
	if port.Published != "3306" || port.Target != 3306 || port.Protocol != "tcp" {
		t.Errorf("mysql port = %+v", port)
	}

	kafka := state.Services["kafka"]
	if len(kafka.Command) != 1 || !strings.HasSuffix(kafka.Command[0], "run.sh") {
		t.Errorf("kafka command = %v", kafka.Command)
	}
}

func TestParseDesiredState_Errors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		project string
		wantErr string
	}{
		{"empty_body", "", "p", "compose body is empty"},
		{"no_project", "services: {}", "", "project name is required"},
		{"no_services", "services: {}\n", "p", "no services"},
		{"missing_image", "services:\n  db:\n    restart: always\n", "p", "missing image"},
		{"invalid_yaml", "services: [", "p", "load compose"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDesiredState(context.Background(), []byte(tc.body), tc.project)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestParseDesiredState_UnpublishedPortsSkipped(t *testing.T) {
	body := `
services:
  worker:
    image: worker:1
    expose:
      - "8080"
`
	state, err := ParseDesiredState(context.Background(), []byte(body), "p")
	if err != nil {
		t.Fatalf("ParseDesiredState() error: %v", err)
	}
	if got := state.Services["worker"].Ports; len(got) != 0 {
		t.Fatalf("expected no published ports, got %v", got)
	}
}
