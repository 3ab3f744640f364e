package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE documents (
				document_type VARCHAR(50) NOT NULL,
				id VARCHAR(255) NOT NULL,
				status VARCHAR(100) NOT NULL,
				warehouse_id VARCHAR(255),
				project_id VARCHAR(255),
				data JSONB NOT NULL DEFAULT '{}',
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (document_type, id)
			);

			CREATE INDEX idx_documents_status ON documents(document_type, status);
			CREATE INDEX idx_documents_warehouse ON documents(warehouse_id);

			CREATE TABLE rules (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_event VARCHAR(255) NOT NULL,
				entity_type VARCHAR(255) NOT NULL,
				condition_tree JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				stop_on_match BOOLEAN NOT NULL DEFAULT false,
				active BOOLEAN NOT NULL DEFAULT true,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_rules_active ON rules(active, created_at);

			CREATE TABLE audit_entries (
				id VARCHAR(255) PRIMARY KEY,
				entity_type VARCHAR(50) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				action VARCHAR(100) NOT NULL,
				actor_id VARCHAR(255),
				status_before VARCHAR(100),
				status_after VARCHAR(100),
				comment TEXT,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_entries_entity ON audit_entries(entity_type, entity_id, created_at);

			CREATE TABLE execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				rule_id VARCHAR(255) NOT NULL,
				rule_name VARCHAR(255),
				event_id VARCHAR(255) NOT NULL,
				event_type VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50),
				entity_id VARCHAR(255),
				matched BOOLEAN NOT NULL,
				success BOOLEAN NOT NULL,
				error_message TEXT,
				event JSONB NOT NULL,
				actions_run JSONB NOT NULL DEFAULT '[]',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_rule ON execution_logs(rule_id, created_at DESC);
			CREATE INDEX idx_execution_logs_entity ON execution_logs(entity_id, created_at DESC);
		`,
		2: `
			CREATE TABLE approval_groups (
				id VARCHAR(255) PRIMARY KEY,
				document_type VARCHAR(50) NOT NULL,
				document_id VARCHAR(255) NOT NULL,
				level INT NOT NULL,
				mode VARCHAR(10) NOT NULL CHECK (mode IN ('all', 'any')),
				approver_ids JSONB NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				responses JSONB NOT NULL DEFAULT '[]',
				requested_by VARCHAR(255),
				due_at TIMESTAMP WITH TIME ZONE,
				sla_breached_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				version INT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_groups_document ON approval_groups(document_type, document_id, level);
			CREATE INDEX idx_approval_groups_pending_due ON approval_groups(due_at) WHERE status = 'pending';
			CREATE INDEX idx_approval_groups_approvers ON approval_groups USING GIN (approver_ids);
		`,
	}
}
