package names_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/names"
	"github.com/f0mster/reqrep/pkg/typesupport/cborts"
)

func TestValidateFullTopicName(t *testing.T) {
	valid := []string{"/", "/add_two_ints", "/ns/add_two_ints", "/a1/b_2"}
	for _, n := range valid {
		require.Empty(t, names.ValidateFullTopicName(n), n)
	}
	invalid := map[string]string{
		"":                             "empty",
		"add_two_ints":                 "absolute",
		"/add_two_ints/":               "end with",
		"/add//two":                    "repeated",
		"/1abc":                        "number",
		"/add-two":                     "characters",
		"/" + strings.Repeat("a", 300): "length",
	}
	for n, reason := range invalid {
		require.Contains(t, names.ValidateFullTopicName(n), reason, n)
	}
}

func TestValidateNode(t *testing.T) {
	require.Empty(t, names.ValidateNodeName("talker"))
	require.NotEmpty(t, names.ValidateNodeName(""))
	require.NotEmpty(t, names.ValidateNodeName("9talker"))
	require.NotEmpty(t, names.ValidateNodeName("a/b"))
	require.Empty(t, names.ValidateNamespace("/"))
	require.Empty(t, names.ValidateNamespace("/robot1"))
	require.Contains(t, names.ValidateNamespace("robot1"), "namespace")
}

func TestExpand(t *testing.T) {
	require.Equal(t, "/add_two_ints", names.Expand("add_two_ints", "server", "/"))
	require.Equal(t, "/ns/add_two_ints", names.Expand("add_two_ints", "server", "/ns"))
	require.Equal(t, "/abs", names.Expand("/abs", "server", "/ns"))
	require.Equal(t, "/ns/server", names.Expand("~", "server", "/ns"))
	require.Equal(t, "/ns/server/private", names.Expand("~/private", "server", "/ns"))
}

func TestTopicNames(t *testing.T) {
	name := names.Expand("add_two_ints", "server", "/")
	require.Equal(t, "rq/add_two_intsRequest", names.RequestTopic(name, false))
	require.Equal(t, "rr/add_two_intsReply", names.ReplyTopic(name, false))
	require.Equal(t, "/add_two_intsRequest", names.RequestTopic(name, true))
	require.Equal(t, "/add_two_intsReply", names.ReplyTopic(name, true))
}

type addRequest struct{ A, B int64 }
type addResponse struct{ Sum int64 }

func TestServiceTypeNames(t *testing.T) {
	ts := cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts")
	req, resp, err := names.ServiceTypeNames(ts)
	require.NoError(t, err)
	require.Equal(t, "example_interfaces::srv::dds_::AddTwoInts_Request_", req)
	require.Equal(t, "example_interfaces::srv::dds_::AddTwoInts_Response_", resp)

	_, err = names.TypeName(nil)
	require.ErrorIs(t, err, names.ErrEmptyTypeName)

	reqMeta, respMeta, err := names.ServiceMetaStrings(ts)
	require.NoError(t, err)
	require.NotEqual(t, reqMeta, respMeta)
}
