package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core/group"
)

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo groupRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo groupRepository) GetCourseByID(id int64) (group.Course, error) {
	var crs group.Course
	err := repo.db.QueryRow(
		`SELECT id, short_name, full_name, created_at, updated_at FROM course WHERE id = $1`, id,
	).Scan(&crs.ID, &crs.ShortName, &crs.FullName, &crs.CreatedAt, &crs.UpdatedAt)
	if err != nil {
		return group.Course{}, repo.trapNoRowsErr(err, group.ErrCourseNotFound, "getting course")
	}
	return crs, nil
}

func (repo groupRepository) GetCourseModuleByID(id int64) (group.CourseModule, error) {
	var cm group.CourseModule
	err := repo.db.QueryRow(
		`SELECT id, course_id, name, group_mode FROM course_module WHERE id = $1`, id,
	).Scan(&cm.ID, &cm.CourseID, &cm.Name, &cm.GroupMode)
	if err != nil {
		return group.CourseModule{}, repo.trapNoRowsErr(err, group.ErrModuleNotFound, "getting course module")
	}
	return cm, nil
}

func (repo groupRepository) CreateGroup(grp group.Group) (group.Group, error) {
	err := repo.db.QueryRow(
		`INSERT INTO "group" (course_id, name, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		grp.CourseID, grp.Name, grp.CreatedAt, grp.UpdatedAt,
	).Scan(&grp.ID)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo groupRepository) GetGroupByID(id int64) (group.Group, error) {
	var grp group.Group
	err := repo.db.QueryRow(
		`SELECT id, course_id, name, created_at, updated_at FROM "group" WHERE id = $1`, id,
	).Scan(&grp.ID, &grp.CourseID, &grp.Name, &grp.CreatedAt, &grp.UpdatedAt)
	if err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, group.ErrNotFound, "getting group")
	}
	return grp, nil
}

func (repo groupRepository) queryGroups(query string, args ...interface{}) ([]group.Group, error) {
	rows, err := repo.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	defer rows.Close()

	var groups []group.Group
	for rows.Next() {
		var grp group.Group
		if err := rows.Scan(&grp.ID, &grp.CourseID, &grp.Name, &grp.CreatedAt, &grp.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning group")
		}
		groups = append(groups, grp)
	}
	return groups, errors.Wrap(rows.Err(), "querying groups")
}

func (repo groupRepository) QueryCourseGroups(courseID int64) ([]group.Group, error) {
	return repo.queryGroups(
		`SELECT id, course_id, name, created_at, updated_at FROM "group" WHERE course_id = $1 ORDER BY name`,
		courseID,
	)
}

func (repo groupRepository) QueryMemberGroups(courseID, userID int64) ([]group.Group, error) {
	return repo.queryGroups(`
SELECT g.id, g.course_id, g.name, g.created_at, g.updated_at
FROM "group" g
JOIN group_member gm ON gm.group_id = g.id
WHERE g.course_id = $1 AND gm.user_id = $2
ORDER BY g.name`,
		courseID, userID,
	)
}

func (repo groupRepository) AddMember(groupID, userID int64) error {
	_, err := repo.db.Exec(
		`INSERT INTO group_member (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, userID,
	)
	return errors.Wrap(err, "adding group member")
}

func (repo groupRepository) RemoveMember(groupID, userID int64) error {
	_, err := repo.db.Exec(`DELETE FROM group_member WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	return errors.Wrap(err, "removing group member")
}

func (repo groupRepository) QueryMembers(groupID int64) ([]int64, error) {
	rows, err := repo.db.Query(`SELECT user_id FROM group_member WHERE group_id = $1 ORDER BY user_id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "querying group members")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning group member")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "querying group members")
}

func (repo groupRepository) EnrolUser(courseID, userID int64) error {
	_, err := repo.db.Exec(
		`INSERT INTO enrolment (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		courseID, userID,
	)
	return errors.Wrap(err, "enrolling user")
}
