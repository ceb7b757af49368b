package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/payguard-next/internal/fraud"
	"github.com/payguard-next/internal/logger"
)

// BlacklistAdminService 风控黑名单管理服务
type BlacklistAdminService struct {
	blacklist fraud.Blacklist
}

// NewBlacklistAdminService 创建黑名单管理服务
func NewBlacklistAdminService(blacklist fraud.Blacklist) *BlacklistAdminService {
	return &BlacklistAdminService{blacklist: blacklist}
}

// FlagAccount 将账户加入黑名单
func (s *BlacklistAdminService) FlagAccount(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("%w: account_id 必填", ErrValidation)
	}
	if err := s.blacklist.Add(ctx, accountID); err != nil {
		return err
	}
	logger.Warnw("blacklist_account_flagged", "account_id", accountID)
	return nil
}

// UnflagAccount 将账户移出黑名单
func (s *BlacklistAdminService) UnflagAccount(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("%w: account_id 必填", ErrValidation)
	}
	if err := s.blacklist.Remove(ctx, accountID); err != nil {
		return err
	}
	logger.Infow("blacklist_account_unflagged", "account_id", accountID)
	return nil
}

// IsFlagged 查询账户是否在黑名单中
func (s *BlacklistAdminService) IsFlagged(ctx context.Context, accountID string) (bool, error) {
	return s.blacklist.Contains(ctx, strings.TrimSpace(accountID))
}

// ListFlagged 列出黑名单账户（字典序）
func (s *BlacklistAdminService) ListFlagged(ctx context.Context) ([]string, error) {
	accounts, err := s.blacklist.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(accounts)
	return accounts, nil
}
