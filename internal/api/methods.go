package api

import "github.com/dmitrijs2005/civicreport/internal/roles"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "civicreport.v1.CivicReport"

const (
	MethodRegister     = "Register"
	MethodGetSalt      = "GetSalt"
	MethodLogin        = "Login"
	MethodRefreshToken = "RefreshToken"
	MethodPing         = "Ping"
	MethodMe           = "Me"
	MethodCreateIssue  = "CreateIssue"
	MethodGetIssue     = "GetIssue"
	MethodListIssues   = "ListIssues"
	MethodUpdateStatus = "UpdateStatus"
	MethodAssignIssue  = "AssignIssue"
	MethodUpvote       = "Upvote"
	MethodListStaff    = "ListStaff"
	MethodCreateStaff  = "CreateStaff"
	MethodAnalytics    = "Analytics"
	MethodPhotoURL     = "PhotoURL"
)

// FullMethod returns the gRPC path of method, e.g.
// "/civicreport.v1.CivicReport/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Access describes who may call a method. Public methods need no token;
// the others require a valid token whose role is in Roles.
type Access struct {
	Public bool
	Roles  []roles.Role
}

var anyRole = []roles.Role{roles.User, roles.Staff, roles.Admin}

// Methods is the server-side routing table, keyed by full method path.
// Methods missing from the table are denied.
var Methods = map[string]Access{
	FullMethod(MethodRegister):     {Public: true},
	FullMethod(MethodGetSalt):      {Public: true},
	FullMethod(MethodLogin):        {Public: true},
	FullMethod(MethodRefreshToken): {Public: true},
	FullMethod(MethodPing):         {Public: true},
	FullMethod(MethodMe):           {Roles: anyRole},
	FullMethod(MethodCreateIssue):  {Roles: []roles.Role{roles.User}},
	FullMethod(MethodGetIssue):     {Roles: anyRole},
	FullMethod(MethodListIssues):   {Roles: anyRole},
	FullMethod(MethodUpdateStatus): {Roles: []roles.Role{roles.Staff, roles.Admin}},
	FullMethod(MethodAssignIssue):  {Roles: []roles.Role{roles.Admin}},
	FullMethod(MethodUpvote):       {Roles: []roles.Role{roles.User}},
	FullMethod(MethodListStaff):    {Roles: []roles.Role{roles.Admin}},
	FullMethod(MethodCreateStaff):  {Roles: []roles.Role{roles.Admin}},
	FullMethod(MethodAnalytics):    {Roles: []roles.Role{roles.Admin}},
	FullMethod(MethodPhotoURL):     {Roles: anyRole},
}
