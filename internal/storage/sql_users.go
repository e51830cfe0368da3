package storage

import (
	"context"
	"strings"
)

func (p *SQLProvider) CreateUser(ctx context.Context, u *User) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO users
		    (username, password_hash, full_name, email, phone, role, dept_id, advisor_id, registration_no, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.FullName, u.Email, u.Phone,
		u.Role, u.DeptID, u.AdvisorID, u.RegistrationNo, u.IsActive,
	)
	if err != nil {
		return 0, mapRowError(err)
	}
	return res.LastInsertId()
}

func (p *SQLProvider) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, mapRowError(err)
	}
	return &u, nil
}

func (p *SQLProvider) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := p.db.GetContext(ctx, &u, `SELECT * FROM users WHERE username = ?`, username); err != nil {
		return nil, mapRowError(err)
	}
	return &u, nil
}

func (p *SQLProvider) ListUsers(ctx context.Context, role *Role, deptID *int64) ([]User, error) {
	var where []string
	var args []any

	if role != nil {
		where = append(where, "role = ?")
		args = append(args, *role)
	}
	if deptID != nil {
		where = append(where, "dept_id = ?")
		args = append(args, *deptID)
	}

	query := `SELECT * FROM users`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY full_name"

	users := []User{}
	if err := p.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, mapRowError(err)
	}
	return users, nil
}

func (p *SQLProvider) ListStudentsByAdvisor(ctx context.Context, advisorID int64) ([]User, error) {
	users := []User{}
	err := p.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE role = ? AND advisor_id = ? AND is_active = 1
		ORDER BY full_name`,
		RoleStudent, advisorID)
	if err != nil {
		return nil, mapRowError(err)
	}
	return users, nil
}

func (p *SQLProvider) UpdateUser(ctx context.Context, u *User) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = ?, email = ?, phone = ?, role = ?, dept_id = ?,
		    advisor_id = ?, registration_no = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		u.FullName, u.Email, u.Phone, u.Role, u.DeptID,
		u.AdvisorID, u.RegistrationNo, u.IsActive, u.ID,
	)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) SetUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) AssignAdvisor(ctx context.Context, studentID, advisorID int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET advisor_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND role = ?`,
		advisorID, studentID, RoleStudent)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) DeleteUser(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) FindDeptStaff(ctx context.Context, deptID int64) (*User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `
		SELECT * FROM users
		WHERE role = ? AND dept_id = ? AND is_active = 1
		ORDER BY id LIMIT 1`,
		RoleStaff, deptID)
	if err != nil {
		return nil, mapRowError(err)
	}
	return &u, nil
}

func (p *SQLProvider) FindDeptHOD(ctx context.Context, deptID int64) (*User, error) {
	var u User
	err := p.db.GetContext(ctx, &u, `
		SELECT * FROM users
		WHERE role = ? AND dept_id = ? AND is_active = 1
		ORDER BY id LIMIT 1`,
		RoleHOD, deptID)
	if err != nil {
		return nil, mapRowError(err)
	}
	return &u, nil
}

func (p *SQLProvider) CreateDepartment(ctx context.Context, d *Department) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO departments (name, code) VALUES (?, ?)`,
		d.Name, d.Code)
	if err != nil {
		return 0, mapRowError(err)
	}
	return res.LastInsertId()
}

func (p *SQLProvider) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	var d Department
	if err := p.db.GetContext(ctx, &d, `SELECT * FROM departments WHERE id = ?`, id); err != nil {
		return nil, mapRowError(err)
	}
	return &d, nil
}

func (p *SQLProvider) ListDepartments(ctx context.Context) ([]Department, error) {
	departments := []Department{}
	if err := p.db.SelectContext(ctx, &departments, `SELECT * FROM departments ORDER BY name`); err != nil {
		return nil, mapRowError(err)
	}
	return departments, nil
}

func (p *SQLProvider) UpdateDepartment(ctx context.Context, d *Department) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, code = ? WHERE id = ?`,
		d.Name, d.Code, d.ID)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}

func (p *SQLProvider) DeleteDepartment(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		return mapRowError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRecord
	}
	return nil
}
