package redis_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mediocregopher/radix/v3"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	tests "github.com/f0mster/reqrep/internal/test"
	"github.com/f0mster/reqrep/pkg/graph"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/registry/redis"
)

type TestContext struct {
	redisAddr string

	dockerPool *dockertest.Pool
	dbRes      *dockertest.Resource
}

func getAddr(dockerEndpoint, port string) string {
	// experimental support of local docker daemon
	dockerEndpoint = strings.Replace(dockerEndpoint, "tcp://", "", 1)

	host := strings.Split(dockerEndpoint, ":")[0]

	if strings.Contains(dockerEndpoint, "unix:") || strings.Contains(dockerEndpoint, "http://localhost:") {
		host = "0.0.0.0"
	}

	return fmt.Sprintf("%s:%s", host, port)
}

func (tc *TestContext) SetUp(t testing.TB) {
	t.Log("SetUp")
	p, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Could not connect to docker: %s", err)
	}
	tc.dockerPool = p

	r, err := tc.dockerPool.Run("redis", "6.0.8-alpine3.12", nil)
	if err != nil {
		t.Skipf("Could not start resource: %s", err)
	}
	tc.dbRes = r

	tc.redisAddr = getAddr(tc.dockerPool.Client.Endpoint(), tc.dbRes.GetPort("6379/tcp"))
	if err := tc.dockerPool.Retry(func() error {
		conn, err := radix.Dial("tcp", tc.redisAddr)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Do(radix.Cmd(nil, "PING"))
	}); err != nil {
		t.Fatalf("Could not connect to docker: %s", err)
	}
}

func (tc *TestContext) TearDown(t testing.TB) {
	t.Log("TearDown")
	if err := tc.dockerPool.Purge(tc.dbRes); err != nil {
		t.Fatalf("Could not purge resource: %s", err)
	}
	tc.dbRes = nil
}

func (tc *TestContext) registry(t *testing.T, prefix string) *redis.Registry {
	r, err := redis.New("tcp", tc.redisAddr, 4, prefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisRegistry(t *testing.T) {
	tctx := TestContext{}
	tctx.SetUp(t)
	defer tctx.TearDown(t)

	prefix := tests.RandomName("reqrep")
	tests.Registry_Test(tctx.registry(t, prefix), tctx.registry(t, prefix), t)
}

func TestRedisRegistryGraph(t *testing.T) {
	tctx := TestContext{}
	tctx.SetUp(t)
	defer tctx.TearDown(t)

	prefix := tests.RandomName("reqrep")
	a, b := graph.New(tctx.registry(t, prefix)), graph.New(tctx.registry(t, prefix))
	e := registry.Endpoint{Id: "1", Role: registry.RoleServer, Service: "/add_two_ints", RequestType: "req", ResponseType: "resp"}
	require.NoError(t, a.OnServiceCreated(e))
	require.Len(t, b.Servers("/add_two_ints"), 1)
	require.Empty(t, b.Clients("/add_two_ints"))
	require.Equal(t, map[string][]string{"/add_two_ints": {"req"}}, b.ServiceNamesAndTypes())
	require.NoError(t, a.OnServiceDeleted(e))
	require.Empty(t, b.ServiceNamesAndTypes())
}
