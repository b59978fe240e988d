package evaluate

// Checkpoint IDs in report order.
const (
	IDValidRepo  = "01_valid_repo"
	IDBranchName = "02_branch_name"
	IDFilenames  = "03_filenames"

	IDFullName  = "04a_valid_fullname"
	IDEmail     = "04b_email_address"
	IDStudentID = "04c_student_id"

	IDMethods = "05a_all_methods_correct"
	IDFields  = "05b_all_fields_correct"
	IDInit    = "05c_init"
	IDAdd     = "05d_add"
	IDCount   = "05i_count"
	IDRemove  = "05e_remove"
	IDWeight  = "05f_weight"
	IDItems   = "05g_items"
	IDDump    = "05h_dump"
	IDLint    = "05j_lint"

	IDCommits  = "06a_commits"
	IDMessages = "06b_msgs"
)

// Point budgets.
const (
	pointsDefault = 5

	// pointsPartial is awarded for a recognizable partial implementation.
	pointsPartial = 2

	pointsPerCommit  = 5
	pointsPerMessage = 3
)

// Workload sizes of the behavioural checks.
const (
	bulkAddCount   = 200
	duplicateAdds  = 10
	weighCount     = 1000
	weighTare      = 20.0
	weighItem      = 1.0
	dumpCount      = 10000
	duplicateName  = "egg"
	duplicateGrams = 2.0
)
