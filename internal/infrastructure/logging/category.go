package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	MongoDB         Category = "MongoDB"
	WebSocket       Category = "WebSocket"
	Session         Category = "Session"
	Compiler        Category = "Compiler"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"
	Api             SubCategory = "Api"

	// WebSocket / Session
	Connect    SubCategory = "Connect"
	Disconnect SubCategory = "Disconnect"
	Join       SubCategory = "Join"
	Leave      SubCategory = "Leave"
	Relay      SubCategory = "Relay"
	Sync       SubCategory = "Sync"
	Delivery   SubCategory = "Delivery"
	Reconnect  SubCategory = "Reconnect"

	// Messaging / persistence
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
	Audit   SubCategory = "Audit"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	RequestId    ExtraKey = "RequestId"

	RoomID       ExtraKey = "RoomId"
	ConnectionID ExtraKey = "ConnectionId"
	DisplayName  ExtraKey = "DisplayName"
	EventType    ExtraKey = "EventType"
	MemberCount  ExtraKey = "MemberCount"
	Attempt      ExtraKey = "Attempt"
)
