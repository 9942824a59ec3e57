package rbac

// RolePermissions is the default policy. A trailing * matches any suffix.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"exam:take",
		"attempt:submit",
		"result:view-own",
		"user:change_password",
	},
	"instructor": {
		"exam:view",
		"result:view-own",
		"result:view-all",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
